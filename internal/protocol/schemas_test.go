package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelwalk.dev/internal/protocol"
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

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	inputSchema := compile("input.schema.json")
	stateSchema := compile("state.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"walker1",
	  "role":"player"
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"s1",
	  "role":"player",
	  "world_params":{
	    "world_id":"world_1",
	    "width":64,
	    "height":8,
	    "depth":64,
	    "tick_rate_hz":30,
	    "step_height":1.0,
	    "reach":8.0
	  },
	  "materials":["GRASS","DIRT","STONE"],
	  "player":{"eye":[2.5,2.7,0.5],"yaw":0,"pitch":0,"vel_y":0,"grounded":true,"selected":0}
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var input any
	_ = json.Unmarshal([]byte(`{
	  "type":"INPUT",
	  "protocol_version":"1.0",
	  "seq":12,
	  "forward":1,
	  "strafe":-0.5,
	  "dyaw":3.5,
	  "dpitch":-1.0,
	  "jump":true,
	  "edit":"add",
	  "material":4
	}`), &input)
	validate(inputSchema, input)

	var state any
	_ = json.Unmarshal([]byte(`{
	  "type":"STATE",
	  "protocol_version":"1.0",
	  "tick":42,
	  "player":{"eye":[2.5,2.7,0.5],"yaw":90,"pitch":-15,"vel_y":0,"grounded":true,"selected":2},
	  "voxels":{"width":4,"height":8,"depth":4,"encoding":"RLE","data":"AQQ="},
	  "events":[{"t":42,"type":"BLOCK_PLACED","ok":true,"pos":[1,1,1],"material":2}]
	}`), &state)
	validate(stateSchema, state)
}

// The structs the server actually marshals must satisfy their own schemas.
func TestSchemas_ValidateMarshalledMessages(t *testing.T) {
	schema, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "state.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            7,
		Player: protocol.PlayerState{
			Eye:      [3]float64{1.5, 2.7, 1.5},
			Grounded: true,
		},
		Voxels: &protocol.VoxelsMsg{Width: 2, Height: 4, Depth: 2, Encoding: "RLE", Data: "ABA="},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := schema.Validate(v); err != nil {
		t.Fatalf("marshalled STATE fails its schema: %v", err)
	}
}
