package mqttpub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"ncomrx/internal/ncom"
)

type Config struct {
	Broker       string
	ClientID     string
	Topic        string
	TriggerTopic string
}

// Message is the published navigation update. Invalid fields are omitted.
type Message struct {
	TimeSec        *float64 `json:"time_sec,omitempty"`
	UTCOffsetSec   *float64 `json:"utc_offset_sec,omitempty"`
	LatDeg         *float64 `json:"lat_deg,omitempty"`
	LonDeg         *float64 `json:"lon_deg,omitempty"`
	Dist2DM        *float64 `json:"dist2d_m,omitempty"`
	Classification string   `json:"classification"`
}

func MessageOf(rec ncom.Record) Message {
	m := Message{Classification: rec.Classification.String()}
	if rec.TimeValid {
		t := rec.Time
		m.TimeSec = &t
	}
	if rec.UTCOffsetValid {
		o := rec.UTCOffset
		m.UTCOffsetSec = &o
	}
	if rec.LatValid {
		lat := rec.LatDeg
		m.LatDeg = &lat
	}
	if rec.LonValid {
		lon := rec.LonDeg
		m.LonDeg = &lon
	}
	if rec.Dist2DValid {
		d := rec.Dist2D
		m.Dist2DM = &d
	}
	return m
}

type Publisher struct {
	cfg    Config
	client mqtt.Client
}

func New(cfg Config) *Publisher {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	return &Publisher{cfg: cfg, client: mqtt.NewClient(opts)}
}

func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", p.cfg.Broker, token.Error())
	}
	log.Printf("mqtt connected broker=%s client_id=%s", p.cfg.Broker, p.cfg.ClientID)
	return nil
}

// Publish sends rec to the topic selected by its classification. Regular
// updates are retained so late subscribers see the latest position.
func (p *Publisher) Publish(rec ncom.Record) error {
	payload, err := json.Marshal(MessageOf(rec))
	if err != nil {
		return err
	}

	topic, retained := p.topicFor(rec.Classification)
	token := p.client.Publish(topic, 0, retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, token.Error())
	}
	return nil
}

func (p *Publisher) topicFor(c ncom.Classification) (topic string, retained bool) {
	switch c {
	case ncom.ClassIn1Down, ncom.ClassIn1Up:
		return p.cfg.TriggerTopic, false
	default:
		return p.cfg.Topic, true
	}
}

func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}
