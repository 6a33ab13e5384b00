package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventLogNewestFirst(t *testing.T) {
	log := NewEventLog(10)
	log.Record("request_submitted", "req-1", "")
	log.Record("request_completed", "req-1", "")

	events := log.Recent(0)
	assert.Len(t, events, 2)
	assert.Equal(t, "request_completed", events[0].Kind)
	assert.Equal(t, "request_submitted", events[1].Kind)
}

func TestEventLogEvictsOldest(t *testing.T) {
	log := NewEventLog(3)
	for i := 0; i < 5; i++ {
		log.Record("tick", fmt.Sprintf("req-%d", i), "")
	}

	events := log.Recent(0)
	assert.Len(t, events, 3)
	assert.Equal(t, "req-4", events[0].RequestID)
	assert.Equal(t, "req-2", events[2].RequestID)
}

func TestEventLogLimit(t *testing.T) {
	log := NewEventLog(10)
	for i := 0; i < 6; i++ {
		log.Record("tick", fmt.Sprintf("req-%d", i), "")
	}

	events := log.Recent(2)
	assert.Len(t, events, 2)
	assert.Equal(t, "req-5", events[0].RequestID)
}

func TestEventLogNilSafe(t *testing.T) {
	var log *EventLog
	log.Record("tick", "req-1", "")
	assert.Nil(t, log.Recent(5))
}
