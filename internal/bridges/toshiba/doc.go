// Package toshiba implements the Toshiba air-conditioner bridge for Gray Logic.
//
// Toshiba units report and accept their whole physical state as a compact
// hex string (the raw state). This package translates that string to and
// from six logical capabilities and connects the units to Gray Logic Core
// over MQTT.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐   relay   ┌──────────┐
//	│   Gray Logic    │   MQTT   │  Toshiba Bridge │◄─────────►│  vendor  │
//	│      Core       │◄────────►│   (this pkg)    │   MQTT    │  channel │
//	└─────────────────┘          └─────────────────┘           └──────────┘
//
// # Raw State
//
// The wire form is at least 20 hex characters. Two zero nibbles are
// re-inserted before wire positions 12 and 13 to get a flat byte array:
//
//	byte 0  status              0x30 on, 0x31 off
//	byte 1  mode                0x41 auto, 0x43 cool, 0x42 heat
//	byte 2  target temperature  signed byte
//	byte 3  fan                 0x41 auto, 0x31..0x36 speed bands
//	byte 4  swing               0x31 off, 0x42 on
//	byte 9  indoor temperature  signed byte (read-only)
//
// Unknown values decode to the field default. Encode uses the previous raw
// state as a template so bytes the bridge does not understand survive.
//
//	state, err := toshiba.Decode(raw)
//	state.Mode = toshiba.ModeHeat
//	next, err := toshiba.Encode(raw, state)
//
// # Controllers
//
// Each unit has a Controller that owns its raw and logical state. Intents
// return an Outbound payload; the Bridge dispatches it outside the
// controller lock. Delivery failures are reported but never roll state back.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package toshiba
