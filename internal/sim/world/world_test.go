package world

import (
	"encoding/json"
	"testing"
	"time"

	"longwater/internal/protocol"
)

func testConfig() Config {
	cfg := Config{
		ID:         "w1",
		Seed:       99,
		TickRateHz: 30,
	}
	cfg.Terrain.Seed = cfg.Seed
	cfg.Terrain.Amplitude = 8
	cfg.Terrain.NoiseScale = 0.015
	cfg.Terrain.Octaves = 3
	cfg.Terrain.ValleyRise = 0.3
	cfg.Terrain.ValleyMax = 40
	cfg.Terrain.ChannelDepth = 5
	cfg.Terrain.River.BaseWidth = 28
	cfg.Biome.Seed = cfg.Seed
	cfg.Stream.Seed = cfg.Seed
	cfg.Stream.Budget = 50 * time.Millisecond
	cfg.Corridor.Radius = 100
	return cfg
}

func TestNewRejectsZeroTickRate(t *testing.T) {
	cfg := testConfig()
	cfg.TickRateHz = 0
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("zero tick rate must be rejected")
	}
}

type collectingSink struct {
	entries []EventLogEntry
}

func (s *collectingSink) WriteEvent(e EventLogEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

func TestEventSinkReceivesChunkActivations(t *testing.T) {
	w, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink := &collectingSink{}
	w.SetEventSink(sink)

	for i := 0; i < 30; i++ {
		w.StepOnce(nil)
	}

	var builds int
	for _, e := range sink.entries {
		if e.Kind != "chunk_active" {
			continue
		}
		builds++
		if e.Tick == 0 {
			t.Fatal("event entry missing tick")
		}
		if e.Digest == "" {
			t.Fatalf("chunk %d activation missing digest", e.Index)
		}
		if e.ZMax <= e.ZMin {
			t.Fatalf("chunk %d has inverted span [%v, %v]", e.Index, e.ZMin, e.ZMax)
		}
	}
	if builds == 0 {
		t.Fatal("sink saw no chunk activations")
	}
}

func TestViewerCatchUpOnJoin(t *testing.T) {
	w, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 30; i++ {
		w.StepOnce(nil)
	}
	active := len(w.Manager().ActiveIndices())
	if active == 0 {
		t.Fatal("world did not settle any chunks")
	}

	out := make(chan []byte, 64)
	w.handleViewerJoin(viewerJoinReq{ID: "v1", Out: out})

	chunks := 0
	for len(out) > 0 {
		var base protocol.BaseMessage
		if err := json.Unmarshal(<-out, &base); err != nil {
			t.Fatalf("decode catch-up message: %v", err)
		}
		if base.Type == protocol.TypeChunk {
			chunks++
		}
	}
	if chunks != active {
		t.Fatalf("catch-up sent %d CHUNK messages, want %d", chunks, active)
	}

	w.handleViewerLeave("v1")
	if _, ok := <-out; ok {
		t.Fatal("leave must close the viewer channel")
	}
}

func TestStateDigestStableWithoutStepping(t *testing.T) {
	w, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.StepOnce(nil)
	if w.stateDigest() != w.stateDigest() {
		t.Fatal("digest must be a pure function of state")
	}
}

func TestSendLatestNeverBlocks(t *testing.T) {
	out := make(chan []byte, 1)
	sendLatest(out, []byte("a"))
	sendLatest(out, []byte("b"))
	sendLatest(out, []byte("c"))
	got := string(<-out)
	if got != "c" {
		t.Fatalf("queue kept %q, want the latest message", got)
	}
}
