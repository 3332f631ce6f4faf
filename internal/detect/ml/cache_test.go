package ml

import "testing"

func TestCache_GetOnEmptyReturnsNil(t *testing.T) {
	c := NewCache()
	if c.Get("missing") != nil {
		t.Error("expected nil model for an untrained api_id")
	}
}

func TestCache_SetThenGet(t *testing.T) {
	c := NewCache()
	m := &Model{Scaler: &Scaler{}, Forest: &Forest{}}

	c.Set("api-1", m)

	if got := c.Get("api-1"); got != m {
		t.Errorf("Get() returned a different model than Set()")
	}
	if c.Get("api-2") != nil {
		t.Error("Set() for one api_id must not affect another")
	}
}

func TestCache_TryBeginTraining_WinsRaceOnce(t *testing.T) {
	c := NewCache()

	first := c.TryBeginTraining("api-1")
	second := c.TryBeginTraining("api-1")

	if !first {
		t.Error("first TryBeginTraining should win")
	}
	if second {
		t.Error("concurrent second TryBeginTraining for the same api_id should lose")
	}
}

func TestCache_EndTraining_AllowsNextRun(t *testing.T) {
	c := NewCache()

	c.TryBeginTraining("api-1")
	c.EndTraining("api-1")

	if !c.TryBeginTraining("api-1") {
		t.Error("expected TryBeginTraining to succeed again after EndTraining")
	}
}
