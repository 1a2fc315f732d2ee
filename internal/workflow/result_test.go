package workflow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_ToMap_SerializesCleanly(t *testing.T) {
	res := &Result{
		Workflow:  "mixed",
		Status:    RunCompleted,
		Success:   true,
		StartedAt: time.Now(),
		Duration:  42 * time.Millisecond,
		Steps: map[string]*StepResult{
			"text":    {StepID: "text", Status: StatusSucceeded, Output: "hello", Attempts: 1},
			"numbers": {StepID: "numbers", Status: StatusSucceeded, Output: map[string]interface{}{"n": 3}, Attempts: 1},
			"opaque":  {StepID: "opaque", Status: StatusSucceeded, Output: make(chan int), Attempts: 1},
		},
	}

	m := res.ToMap()

	// Even the channel-valued output must survive JSON encoding.
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))

	steps := out["steps"].(map[string]interface{})
	assert.Equal(t, "hello", steps["text"].(map[string]interface{})["output"])
	assert.IsType(t, "", steps["opaque"].(map[string]interface{})["output"])
}

func TestResult_FailedSteps(t *testing.T) {
	res := &Result{
		Steps: map[string]*StepResult{
			"a": {StepID: "a", Status: StatusSucceeded},
			"b": {StepID: "b", Status: StatusFailed},
			"c": {StepID: "c", Status: StatusSkipped},
		},
	}

	assert.Equal(t, []string{"b"}, res.FailedSteps())
}
