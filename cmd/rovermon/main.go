package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/remote"
	"github.com/robotalks/rover/pkg/remote/mqtt"
	"github.com/robotalks/rover/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/rovers/"
)

func init() {
	if val := os.Getenv("ROVER_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := mqtt.NewQueue(opts, prefix)
	q.Sub("#", func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+remote.TopicMeta):
			log.Printf("%s: %s", topic, string(payload))
		case strings.HasSuffix(topic, "/"+remote.TopicCmd):
			log.Printf("%s: %q", topic, string(payload))
		case strings.HasSuffix(topic, "/"+remote.TopicStatus):
			s, err := telemetry.Decode(payload)
			if err != nil {
				log.Printf("%s: bad status: %v", topic, err)
				return
			}
			log.Printf("%s: %s", topic, s.String())
		}
	})
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	framework.NewRunner().HandleSignals().Go(framework.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})).Wait()
	q.Close()
}
