// Package mqtt wraps the Eclipse Paho client for the Toshiba bridge.
//
// The bridge talks to two parties over one broker: Gray Logic Core on
// graylogic/{command,ack,state,health}/toshiba/... and the vendor relay on
// graylogic/vendor/toshiba/{inbound,outbound}/{unique_id}.
//
// The wrapper adds:
//   - Last Will and Testament supplied by the caller
//   - auto-reconnect with subscriptions restored afterwards
//   - panic-safe message handlers
//   - topic and filter validation before anything reaches the broker
//
//	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{Topic: lwtTopic, Payload: lwt})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("graylogic/command/toshiba/#", 1, handle)
package mqtt
