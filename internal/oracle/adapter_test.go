package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/models"
)

type fakeReply struct {
	text string
	err  error
	in   int
	out  int
}

type fakeClient struct {
	replies []fakeReply
	calls   int
	models  []string
	keys    []string
}

func (f *fakeClient) Generate(_ context.Context, model, apiKey, _, _ string) (*GenerateResult, error) {
	idx := f.calls
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	f.calls++
	f.models = append(f.models, model)
	f.keys = append(f.keys, apiKey)

	reply := f.replies[idx]
	if reply.err != nil {
		return nil, reply.err
	}
	return &GenerateResult{Text: reply.text, InputTokens: reply.in, OutputTokens: reply.out}, nil
}

type recordedUsage struct {
	model   string
	in, out int
	success bool
}

type fakeUsage struct {
	records []recordedUsage
}

func (f *fakeUsage) RecordUsage(_ context.Context, _, model string, in, out int, success bool) {
	f.records = append(f.records, recordedUsage{model: model, in: in, out: out, success: success})
}

func oracleRequest() Request {
	return Request{
		RequestID: "req-1",
		Courses: []models.CourseRequirement{
			{Department: "CS", Number: "101"},
			{Department: "MATH", Number: "201"},
		},
		RowsByCourse: map[string][]models.RawSectionRow{
			"CS101": {
				{CRN: "100", Course: "CS101", Title: "Intro CS", ScheduleType: "Lecture", Days: "MWF", BeginTime: "9:00AM", EndTime: "9:50AM", Location: "Hall 1"},
				{CRN: "101", Course: "CS101", Title: "Intro CS", ScheduleType: "Lecture", Days: "MWF", BeginTime: "10:00AM", EndTime: "10:50AM", Location: "Hall 2"},
			},
			"MATH201": {
				{CRN: "200", Course: "MATH201", Title: "Calculus", ScheduleType: "Lecture", Days: "TR", BeginTime: "9:30AM", EndTime: "10:45AM", Location: "Hall 3"},
				{CRN: "201", Course: "MATH201", Title: "Calculus", ScheduleType: "Lecture", Days: "MWF", BeginTime: "9:30AM", EndTime: "10:45AM", Location: "Hall 4"},
			},
		},
	}
}

const validResponse = `{"classes":[
  {"crn":"100","courseNumber":"CS101","courseName":"Intro CS","days":"MWF","time":"9:00AM - 9:50AM","location":"Hall 1"},
  {"crn":"200","courseNumber":"MATH-201","courseName":"Calculus","days":"TR","time":"9:30AM - 10:45AM","location":"Hall 3"}
]}`

func newTestAdapter(client Client, keys []string, usage UsageRecorder, maxRetries int) (*Adapter, *QuotaGuard) {
	guard := NewQuotaGuard(len(keys))
	cfg := AdapterConfig{
		Keys:           keys,
		Model:          "model-pro",
		FallbackModels: []string{"model-lite"},
		MaxRetries:     maxRetries,
		Timeout:        time.Second,
	}
	return NewAdapter(client, guard, cfg, usage, zap.NewNop()), guard
}

func TestAdapterAcceptsValidatedSchedule(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{text: validResponse, in: 1200, out: 300}}}
	usage := &fakeUsage{}
	adapter, guard := newTestAdapter(client, []string{"k1"}, usage, 5)

	outcome := adapter.Generate(context.Background(), oracleRequest())

	require.Equal(t, FailureNone, outcome.Failure)
	require.NotNil(t, outcome.Schedule)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, "100", outcome.Schedule.Sections["CS101"].CRN)
	assert.Equal(t, "200", outcome.Schedule.Sections["MATH201"].CRN)
	assert.Len(t, outcome.Result.Classes, 2)

	require.Len(t, usage.records, 1)
	assert.True(t, usage.records[0].success)
	assert.Equal(t, 1200, usage.records[0].in)

	assert.False(t, guard.OnCooldown())
	assert.Zero(t, guard.Snapshot().QuotaErrorCount)
}

func TestAdapterRotatesAllKeysBeforeQuotaExhausted(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{err: errors.New("429 resource exhausted: quota")}}}
	adapter, guard := newTestAdapter(client, []string{"k1", "k2", "k3"}, nil, 20)

	outcome := adapter.Generate(context.Background(), oracleRequest())

	assert.Equal(t, FailureQuotaExhausted, outcome.Failure)
	assert.Nil(t, outcome.Schedule)
	// One call per configured credential, all distinct, within the retry cap.
	require.Equal(t, 3, client.calls)
	assert.LessOrEqual(t, client.calls, 20)
	assert.ElementsMatch(t, []string{"k1", "k2", "k3"}, client.keys)

	assert.Equal(t, 3, guard.Snapshot().QuotaErrorCount)
	assert.True(t, guard.OnCooldown())
}

func TestAdapterRetriesMalformedResponse(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{
		{text: "not json at all"},
		{text: `{"classes":[]}`},
		{text: validResponse},
	}}
	adapter, _ := newTestAdapter(client, []string{"k1"}, nil, 10)

	outcome := adapter.Generate(context.Background(), oracleRequest())
	assert.Equal(t, FailureNone, outcome.Failure)
	assert.Equal(t, 3, outcome.Attempts)
}

func TestAdapterRejectsOverlappingResponse(t *testing.T) {
	overlapping := `{"classes":[
	  {"crn":"100","courseNumber":"CS101","courseName":"Intro CS","days":"MWF","time":"9:00AM - 9:50AM","location":"Hall 1"},
	  {"crn":"201","courseNumber":"MATH201","courseName":"Calculus","days":"MWF","time":"9:30AM - 10:45AM","location":"Hall 4"}
	]}`
	client := &fakeClient{replies: []fakeReply{{text: overlapping}, {text: validResponse}}}
	adapter, _ := newTestAdapter(client, []string{"k1"}, nil, 10)

	outcome := adapter.Generate(context.Background(), oracleRequest())
	require.Equal(t, FailureNone, outcome.Failure)
	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, "200", outcome.Schedule.Sections["MATH201"].CRN)
}

func TestAdapterRejectsUnknownCRN(t *testing.T) {
	unknown := `{"classes":[
	  {"crn":"999","courseNumber":"CS101","courseName":"Intro CS","days":"MWF","time":"9:00AM - 9:50AM","location":"Hall 1"},
	  {"crn":"200","courseNumber":"MATH201","courseName":"Calculus","days":"TR","time":"9:30AM - 10:45AM","location":"Hall 3"}
	]}`
	client := &fakeClient{replies: []fakeReply{{text: unknown}, {text: validResponse}}}
	adapter, _ := newTestAdapter(client, []string{"k1"}, nil, 10)

	outcome := adapter.Generate(context.Background(), oracleRequest())
	require.Equal(t, FailureNone, outcome.Failure)
	assert.Equal(t, 2, outcome.Attempts)
}

func TestAdapterCooldownRefusesWithoutCalling(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{text: validResponse}}}
	adapter, guard := newTestAdapter(client, []string{"k1"}, nil, 10)
	guard.RecordQuotaError()

	outcome := adapter.Generate(context.Background(), oracleRequest())
	assert.Equal(t, FailureCooldownActive, outcome.Failure)
	assert.Zero(t, client.calls)
	assert.Empty(t, outcome.Result.Classes)
	assert.Equal(t, string(FailureCooldownActive), outcome.Result.Error)
}

func TestAdapterGivesUpAfterMaxRetries(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{text: `{"classes":[]}`}}}
	adapter, _ := newTestAdapter(client, []string{"k1"}, nil, 4)

	outcome := adapter.Generate(context.Background(), oracleRequest())
	assert.Equal(t, FailureNoValidSchedule, outcome.Failure)
	assert.Equal(t, 4, outcome.Attempts)
	assert.Equal(t, 4, client.calls)
}

func TestAdapterFallsBackToNextModel(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{
		{err: errors.New("internal failure")},
		{text: validResponse},
	}}
	adapter, _ := newTestAdapter(client, []string{"k1"}, nil, 10)

	outcome := adapter.Generate(context.Background(), oracleRequest())
	require.Equal(t, FailureNone, outcome.Failure)
	require.Len(t, client.models, 2)
	assert.Equal(t, "model-pro", client.models[0])
	assert.Equal(t, "model-lite", client.models[1])
	assert.Equal(t, "model-lite", outcome.Model)
}
