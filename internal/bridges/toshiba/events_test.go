package toshiba

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantKind EventKind
		check    func(t *testing.T, ev Event)
	}{
		{
			name:     "heartbeat",
			data:     `{"cmd":"CMD_HEARTBEAT","sourceId":"unit-1","payload":{"iTemp":"19","oTemp":"0f"}}`,
			wantKind: EventHeartbeat,
			check: func(t *testing.T, ev Event) {
				if ev.IndoorTemperature != 0x19 {
					t.Errorf("IndoorTemperature = 0x%02X, want 0x19", ev.IndoorTemperature)
				}
				if !ev.HasOutdoor || ev.OutdoorTemperature != 0x0F {
					t.Errorf("outdoor = 0x%02X (%v), want 0x0F", ev.OutdoorTemperature, ev.HasOutdoor)
				}
			},
		},
		{
			name:     "heartbeat without outdoor reading",
			data:     `{"cmd":"CMD_HEARTBEAT","sourceId":"unit-1","payload":{"iTemp":"ff"}}`,
			wantKind: EventHeartbeat,
			check: func(t *testing.T, ev Event) {
				if ev.HasOutdoor {
					t.Error("HasOutdoor = true, want false")
				}
				if DecodeTemperature(ev.IndoorTemperature) != TemperatureUnspecified {
					t.Errorf("indoor = %d, want unspecified", DecodeTemperature(ev.IndoorTemperature))
				}
			},
		},
		{
			name:     "state update",
			data:     `{"cmd":"CMD_FCU_FROM_AC","sourceId":"unit-1","payload":{"data":"304316333100000014000000"}}`,
			wantKind: EventStateUpdate,
			check: func(t *testing.T, ev Event) {
				if ev.RawState != canonicalRaw {
					t.Errorf("RawState = %q", ev.RawState)
				}
			},
		},
		{
			name:     "schedule update",
			data:     `{"cmd":"CMD_SET_SCHEDULE_FROM_AC","sourceId":"unit-1","payload":{"program":[1,2]}}`,
			wantKind: EventScheduleUpdate,
			check: func(t *testing.T, ev Event) {
				if len(ev.Schedule) == 0 {
					t.Error("Schedule payload not kept")
				}
			},
		},
		{
			name:     "unknown command",
			data:     `{"cmd":"CMD_SOMETHING_NEW","sourceId":"unit-1","payload":{}}`,
			wantKind: EventUnknown,
			check: func(t *testing.T, ev Event) {
				if ev.Command != "CMD_SOMETHING_NEW" {
					t.Errorf("Command = %q", ev.Command)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", ev.Kind, tt.wantKind)
			}
			if ev.SourceID != "unit-1" {
				t.Errorf("SourceID = %q", ev.SourceID)
			}
			tt.check(t, ev)
		})
	}
}

func TestParseEvent_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing source", `{"cmd":"CMD_HEARTBEAT","payload":{"iTemp":"19"}}`},
		{"heartbeat bad temperature", `{"cmd":"CMD_HEARTBEAT","sourceId":"u","payload":{"iTemp":"xyz"}}`},
		{"heartbeat missing payload", `{"cmd":"CMD_HEARTBEAT","sourceId":"u"}`},
		{"state update empty data", `{"cmd":"CMD_FCU_FROM_AC","sourceId":"u","payload":{"data":""}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tt.data))
			if !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("ParseEvent() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestEventKind_String(t *testing.T) {
	if EventScheduleUpdate.String() != "schedule_update" {
		t.Errorf("String() = %q", EventScheduleUpdate.String())
	}
	if EventKind(42).String() != "unknown" {
		t.Errorf("String() = %q", EventKind(42).String())
	}
}

func TestNewFCUToACMessage(t *testing.T) {
	msg := NewFCUToACMessage("graylogic-session", "msg-1", Outbound{
		DeviceID: "unit-1",
		RawState: canonicalRaw,
	})

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got["sourceId"] != "graylogic-session" {
		t.Errorf("sourceId = %v", got["sourceId"])
	}
	if got["cmd"] != CmdFCUToAC {
		t.Errorf("cmd = %v", got["cmd"])
	}
	if got["timeStamp"] != "0000000" {
		t.Errorf("timeStamp = %v", got["timeStamp"])
	}
	targets, ok := got["targetId"].([]any)
	if !ok || len(targets) != 1 || targets[0] != "unit-1" {
		t.Errorf("targetId = %v", got["targetId"])
	}
	payload, ok := got["payload"].(map[string]any)
	if !ok || payload["data"] != string(canonicalRaw) {
		t.Errorf("payload = %v", got["payload"])
	}
}
