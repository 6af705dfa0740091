package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-toshiba/internal/bridges/toshiba"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "acstate",
		Short: "Toshiba AC raw state tool",
		Long: `acstate translates Toshiba AC raw states to and from their logical
capabilities using the bridge codec.

Raw states are the hex strings carried in CMD_FCU_FROM_AC events and sent in
CMD_FCU_TO_AC messages. Logical states are JSON objects with the fields
status, mode, fan_mode, swing_mode, target_temperature and
indoor_temperature.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newDecodeCmd(), newEncodeCmd(), newSetCmd(), newCommandCmd())
	return root
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "decode RAW",
		Short:   "Print the logical state of a raw state",
		Example: `  acstate decode 304316333100000014000000`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := toshiba.Decode(toshiba.RawState(args[0]))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), state)
		},
	}
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode TEMPLATE STATE",
		Short: "Write a logical state into a template raw state",
		Long: `Encode decodes TEMPLATE, overlays the fields present in the STATE JSON
object and prints the resulting raw state. Bytes the codec does not own are
copied from TEMPLATE unchanged.`,
		Example: `  acstate encode 304316333100000014000000 '{"mode":2,"target_temperature":24}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			template := toshiba.RawState(args[0])
			state, err := toshiba.Decode(template)
			if err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(args[1]), &state); err != nil {
				return fmt.Errorf("parsing state: %w", err)
			}

			raw, err := toshiba.Encode(template, state)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), raw)
			return err
		},
	}
}

// setResult is the output of the set command.
type setResult struct {
	RawState toshiba.RawState     `json:"raw_state"`
	State    toshiba.LogicalState `json:"state"`
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set RAW FIELD VALUE",
		Short: "Apply one capability change to a raw state",
		Long: `Set applies a single intent the way the bridge does on a Core command
and prints the outbound raw state with the resulting logical state.

Writable fields: status, mode, target_temperature, fan_mode, swing_mode.`,
		Example: `  acstate set 304316333100000014000000 fan_mode 86`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, value, err := parseIntent(args[1], args[2])
			if err != nil {
				return err
			}

			ctrl, err := toshiba.NewController(toshiba.Device{UniqueID: "acstate"}, toshiba.RawState(args[0]))
			if err != nil {
				return err
			}
			out, state, err := ctrl.ApplyIntent(field, value)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), setResult{RawState: out.RawState, State: state})
		},
	}
}

func newCommandCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "command DEVICE FIELD VALUE",
		Short: "Print the Core command message for a capability change",
		Long: `Command prints the topic and JSON payload Core would publish to change one
capability of DEVICE. Pipe the payload to an MQTT client to drive a unit
through a running bridge.`,
		Example: `  acstate command unit-hall mode 2`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, value, err := parseIntent(args[1], args[2])
			if err != nil {
				return err
			}

			v := float64(value)
			msg := toshiba.CommandMessage{
				ID:        uuid.NewString(),
				Timestamp: time.Now().UTC(),
				DeviceID:  args[0],
				Field:     string(field),
				Value:     &v,
				Source:    "cli",
				UserID:    userID,
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(w, toshiba.CommandTopic(args[0])); err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(payload))
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID recorded in the command")
	return cmd
}

func parseIntent(fieldArg, valueArg string) (toshiba.Field, int, error) {
	field, err := toshiba.ParseField(fieldArg)
	if err != nil {
		return "", 0, err
	}
	value, err := strconv.Atoi(valueArg)
	if err != nil {
		return "", 0, fmt.Errorf("invalid value %q: %w", valueArg, err)
	}
	if err := toshiba.CheckValue(field, value); err != nil {
		return "", 0, err
	}
	return field, value, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
