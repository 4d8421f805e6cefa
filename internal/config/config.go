package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Outputs    OutputsConfig    `yaml:"outputs"`
	Web        WebConfig        `yaml:"web"`
	TriggerOut TriggerOutConfig `yaml:"trigger_out"`
	Sim        SimConfig        `yaml:"sim"`
}

type SourceConfig struct {
	// Type selects how the NCom stream is ingested: "udp" (device broadcast),
	// "serial" (direct link), or "sim" (synthetic frames for bring-up).
	Type   string       `yaml:"type"`
	UDP    UDPConfig    `yaml:"udp"`
	Serial SerialConfig `yaml:"serial"`
}

type UDPConfig struct {
	Listen string `yaml:"listen"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type OutputsConfig struct {
	CSV     CSVConfig     `yaml:"csv"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Capture CaptureConfig `yaml:"capture"`
}

type CSVConfig struct {
	// Path receives regular updates; TriggerPath receives falling-edge
	// trigger updates. Either may be empty to disable that sink.
	Path        string `yaml:"path"`
	TriggerPath string `yaml:"trigger_path"`
	// Timezone for the civil-time column: an IANA name, "UTC", or empty
	// for local time.
	Timezone string `yaml:"timezone"`
}

type MQTTConfig struct {
	Enable       bool   `yaml:"enable"`
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"client_id"`
	Topic        string `yaml:"topic"`
	TriggerTopic string `yaml:"trigger_topic"`
}

type CaptureConfig struct {
	Record RecordConfig `yaml:"record"`
	Replay ReplayConfig `yaml:"replay"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type TriggerOutConfig struct {
	Enable bool          `yaml:"enable"`
	Pin    int           `yaml:"pin"`
	Pulse  time.Duration `yaml:"pulse"`
}

type SimConfig struct {
	RateHz        int           `yaml:"rate_hz"`
	CenterLatDeg  float64       `yaml:"center_lat_deg"`
	CenterLonDeg  float64       `yaml:"center_lon_deg"`
	RadiusM       float64       `yaml:"radius_m"`
	SpeedMps      float64       `yaml:"speed_mps"`
	TriggerPeriod time.Duration `yaml:"trigger_period"`
	UTCOffsetSec  int           `yaml:"utc_offset_sec"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func DefaultAndValidate(cfg *Config) error {
	if cfg.Source.Type == "" {
		cfg.Source.Type = "udp"
	}
	switch cfg.Source.Type {
	case "udp":
		if cfg.Source.UDP.Listen == "" {
			cfg.Source.UDP.Listen = ":3000"
		}
	case "serial":
		if cfg.Source.Serial.Device == "" {
			return fmt.Errorf("source.serial.device is required when source.type is 'serial'")
		}
		if cfg.Source.Serial.Baud == 0 {
			cfg.Source.Serial.Baud = 115200
		}
	case "sim":
		// Simulator defaults below.
	default:
		return fmt.Errorf("source.type must be one of 'udp', 'serial', 'sim'")
	}

	if cfg.Outputs.MQTT.Enable {
		if cfg.Outputs.MQTT.Broker == "" {
			return fmt.Errorf("outputs.mqtt.broker is required when outputs.mqtt.enable is true")
		}
		if cfg.Outputs.MQTT.ClientID == "" {
			cfg.Outputs.MQTT.ClientID = "ncomrx"
		}
		if cfg.Outputs.MQTT.Topic == "" {
			cfg.Outputs.MQTT.Topic = "ncom/position"
		}
		if cfg.Outputs.MQTT.TriggerTopic == "" {
			cfg.Outputs.MQTT.TriggerTopic = "ncom/trigger"
		}
	}

	if cfg.Outputs.Capture.Record.Enable && cfg.Outputs.Capture.Record.Path == "" {
		return fmt.Errorf("outputs.capture.record.path is required when outputs.capture.record.enable is true")
	}
	if cfg.Outputs.Capture.Replay.Enable {
		if cfg.Outputs.Capture.Replay.Path == "" {
			return fmt.Errorf("outputs.capture.replay.path is required when outputs.capture.replay.enable is true")
		}
		if cfg.Outputs.Capture.Replay.Speed == 0 {
			cfg.Outputs.Capture.Replay.Speed = 1
		}
		if cfg.Outputs.Capture.Replay.Speed < 0 {
			return fmt.Errorf("outputs.capture.replay.speed must be > 0")
		}
	}
	if cfg.Outputs.Capture.Record.Enable && cfg.Outputs.Capture.Replay.Enable {
		return fmt.Errorf("outputs.capture.record and outputs.capture.replay cannot both be enabled")
	}

	if cfg.TriggerOut.Enable {
		if cfg.TriggerOut.Pin <= 0 {
			return fmt.Errorf("trigger_out.pin is required when trigger_out.enable is true")
		}
		if cfg.TriggerOut.Pulse <= 0 {
			cfg.TriggerOut.Pulse = 50 * time.Millisecond
		}
	}

	// Simulator defaults (safe even if unused).
	if cfg.Sim.RateHz <= 0 {
		cfg.Sim.RateHz = 10
	}
	if cfg.Sim.RadiusM <= 0 {
		cfg.Sim.RadiusM = 500
	}
	if cfg.Sim.SpeedMps <= 0 {
		cfg.Sim.SpeedMps = 15
	}
	if cfg.Sim.TriggerPeriod <= 0 {
		cfg.Sim.TriggerPeriod = 10 * time.Second
	}
	if cfg.Sim.UTCOffsetSec == 0 {
		cfg.Sim.UTCOffsetSec = -18
	}

	return nil
}
