package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-toshiba/internal/bridges/toshiba"
)

const canonicalRaw = "304316333100000014000000"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDecodeCmd(t *testing.T) {
	out, err := execute(t, "decode", canonicalRaw)
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}

	var got toshiba.LogicalState
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	want := toshiba.LogicalState{Status: 1, Mode: 1, FanMode: 57, SwingMode: 0, TargetTemperature: 22, IndoorTemperature: 20}
	if got != want {
		t.Errorf("decode = %+v, want %+v", got, want)
	}
}

func TestDecodeCmd_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"short", []string{"decode", "3043"}},
		{"not hex", []string{"decode", "zz4316333100000014000000"}},
		{"missing arg", []string{"decode"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeCmd(t *testing.T) {
	tests := []struct {
		name  string
		state string
		want  string
	}{
		{"heat 24", `{"mode":2,"target_temperature":24}`, "304218333100000014000000"},
		{"fan 86", `{"fan_mode":86}`, "304316353100000014000000"},
		{"empty keeps template", `{}`, canonicalRaw},
		{"power off", `{"status":0}`, "314316333100000014000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "encode", canonicalRaw, tt.state)
			if err != nil {
				t.Fatalf("encode error = %v", err)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("encode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeCmd_BadState(t *testing.T) {
	if _, err := execute(t, "encode", canonicalRaw, `{"mode":`); err == nil {
		t.Error("expected error for malformed state JSON")
	}
}

func TestSetCmd(t *testing.T) {
	out, err := execute(t, "set", canonicalRaw, "fan_mode", "86")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}

	var got setResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("set output %q: %v", out, err)
	}
	if got.RawState != "304316353100000014000000" {
		t.Errorf("raw_state = %q", got.RawState)
	}
	if got.State.FanMode != 86 || got.State.Mode != 1 {
		t.Errorf("state = %+v", got.State)
	}
}

func TestSetCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"read-only field", []string{"set", canonicalRaw, "indoor_temperature", "20"}, toshiba.ErrReadOnlyField},
		{"unknown field", []string{"set", canonicalRaw, "humidity", "40"}, toshiba.ErrUnknownField},
		{"bad raw", []string{"set", "30", "mode", "1"}, toshiba.ErrInvalidRawState},
		{"fan between bands", []string{"set", canonicalRaw, "fan_mode", "50"}, toshiba.ErrInvalidValue},
		{"command out of range", []string{"command", "unit-hall", "swing_mode", "5"}, toshiba.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := execute(t, "set", canonicalRaw, "mode", "warm"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestCommandCmd(t *testing.T) {
	out, err := execute(t, "command", "unit-hall", "mode", "2", "--user", "u-1")
	if err != nil {
		t.Fatalf("command error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("command output = %q, want topic and payload", out)
	}
	if lines[0] != "graylogic/command/toshiba/unit-hall" {
		t.Errorf("topic = %q", lines[0])
	}

	var msg toshiba.CommandMessage
	if err := json.Unmarshal([]byte(lines[1]), &msg); err != nil {
		t.Fatalf("payload %q: %v", lines[1], err)
	}
	if msg.ID == "" || msg.Field != "mode" || msg.Value == nil || *msg.Value != 2 {
		t.Errorf("command = %+v", msg)
	}
	if msg.Source != "cli" || msg.UserID != "u-1" || msg.DeviceID != "unit-hall" {
		t.Errorf("command = %+v", msg)
	}
}
