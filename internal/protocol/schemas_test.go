package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"longwater/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	roundtrip := func(msg any) any {
		t.Helper()
		b, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return v
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	watchSchema := compile("watch.schema.json")
	tickSchema := compile("tick.schema.json")
	chunkSchema := compile("chunk.schema.json")

	validate(helloSchema, roundtrip(protocol.Hello{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "viewer1",
	}))

	validate(welcomeSchema, roundtrip(protocol.Welcome{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "s-1",
		WorldID:         "valley",
		WorldParams: protocol.WorldParams{
			TickRateHz: 30,
			ChunkSize:  64,
			Seed:       1337,
		},
	}))

	z := 120.0
	validate(watchSchema, roundtrip(protocol.Watch{
		Type: protocol.TypeWatch,
		Z:    &z,
	}))

	validate(tickSchema, roundtrip(protocol.Tick{
		Type:      protocol.TypeTick,
		Tick:      42,
		ObserverZ: 120,
		Speed:     12,
		Active:    []int{0, 1, 2},
		Loading:   []int{3},
	}))

	validate(chunkSchema, roundtrip(protocol.Chunk{
		Type:       protocol.TypeChunk,
		Tick:       42,
		Index:      3,
		ZMin:       192,
		ZMax:       256,
		Biomes:     []string{"meadow", "pine_forest"},
		Placements: 31,
		Spawned:    2,
		Digest:     "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	}))
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"WATCH","z":5}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != protocol.TypeWatch {
		t.Fatalf("type = %q, want WATCH", m.Type)
	}
}
