// Package mqtt publishes refined prices to an MQTT broker.
//
// It wraps the Eclipse Paho client with:
//   - a retained online/offline status topic backed by a Last Will
//   - retained refined-hour and current-hour topics
//   - the refresh command subscription, restored after reconnects
//   - panic recovery around message handlers
//
// # Topics
//
//	<prefix>/status                  online/offline (retained, LWT)
//	<prefix>/refined/<date>/<hour>   refined hour JSON (retained)
//	<prefix>/current                 refined values of the current hour (retained)
//	<prefix>/command/refresh         any message triggers a run
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishRefined(ctx, hours)
package mqtt
