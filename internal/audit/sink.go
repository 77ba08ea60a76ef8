package audit

import (
	"fmt"
	"strings"
)

type SinkConfig struct {
	Sink         string
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string
}

// New builds the recorder named by cfg.Sink: "log" (default), "kafka",
// "amqp" or "none".
func New(cfg SinkConfig) (Recorder, error) {
	switch strings.ToLower(cfg.Sink) {
	case "", "log":
		return LogRecorder{}, nil
	case "none":
		return Nop{}, nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "" {
			return nil, fmt.Errorf("kafka audit sink needs brokers and a topic")
		}
		return NewKafkaRecorder(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "amqp":
		return DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		return nil, fmt.Errorf("unknown audit sink %q", cfg.Sink)
	}
}
