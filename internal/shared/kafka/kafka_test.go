package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, Brokers(" a:9092, ,b:9092 "))
	assert.Nil(t, Brokers(""))
}

func TestNewWriterUsesTopic(t *testing.T) {
	w := NewWriter("localhost:9092", "bet_placed")
	assert.Equal(t, "bet_placed", w.Topic)
	assert.True(t, w.AllowAutoTopicCreation)
}
