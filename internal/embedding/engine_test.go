package embedding

import (
	"context"
	"math"
	"sync"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}

	sim, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatalf("CosineSimilarity failed: %v", err)
	}
	if math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("identical vectors should have similarity 1.0, got %f", sim)
	}

	sim, err = CosineSimilarity(a, c)
	if err != nil {
		t.Fatalf("CosineSimilarity failed: %v", err)
	}
	if math.Abs(sim) > 1e-9 {
		t.Errorf("orthogonal vectors should have similarity 0.0, got %f", sim)
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	if err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}

func TestCosineSimilarity_ZeroMagnitude(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("zero magnitude should not error: %v", err)
	}
	if sim != 0 {
		t.Errorf("zero magnitude vector should yield 0 similarity, got %f", sim)
	}
}

func TestValidateVector(t *testing.T) {
	if err := ValidateVector([]float32{0.1, -0.5, 2.3}); err != nil {
		t.Errorf("valid vector rejected: %v", err)
	}
	if err := ValidateVector([]float32{0.1, float32(math.NaN())}); err == nil {
		t.Error("NaN component should be rejected")
	}
	if err := ValidateVector([]float32{float32(math.Inf(1)), 0.1}); err == nil {
		t.Error("Inf component should be rejected")
	}
	if err := ValidateVector(nil); err != nil {
		t.Errorf("empty vector should validate: %v", err)
	}
}

// countingEngine tracks concurrent Embed calls to verify serialization.
type countingEngine struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
}

func (c *countingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.maxSeen {
		c.maxSeen = c.inFlight
	}
	c.mu.Unlock()

	// No sleep needed: the serialized wrapper holds its own mutex across the
	// whole call, so overlap would still be visible here if it leaked.
	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	return []float32{1, 2, 3}, nil
}

func (c *countingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, _ := c.Embed(ctx, texts[i])
		out[i] = v
	}
	return out, nil
}

func (c *countingEngine) Dimensions() int { return 3 }
func (c *countingEngine) Name() string    { return "counting" }

func TestSerialize_SingleFlight(t *testing.T) {
	inner := &countingEngine{}
	engine := Serialize(inner)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.Embed(context.Background(), "hello"); err != nil {
				t.Errorf("Embed failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if inner.maxSeen > 1 {
		t.Errorf("expected at most 1 in-flight embed, saw %d", inner.maxSeen)
	}
}

func TestSerialize_Idempotent(t *testing.T) {
	inner := &countingEngine{}
	once := Serialize(inner)
	twice := Serialize(once)
	if once != twice {
		t.Error("Serialize should not double-wrap an already serialized engine")
	}
}
