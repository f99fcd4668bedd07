package data

import (
	"encoding/json"
	"testing"
)

const sampleConfig = `{
  "defaultDogSpeed": 4.5,
  "dogRetirementTime": 15.5,
  "lootGeneratorConfig": {"period": 5.0, "probability": 0.5},
  "maps": [
    {
      "id": "map1",
      "name": "Map 1",
      "dogSpeed": 2.0,
      "defaultBagCapacity": 5,
      "roads": [
        {"x0": 0, "y0": 0, "x1": 40},
        {"x0": 40, "y0": 0, "y1": 30}
      ],
      "buildings": [{"x": 5, "y": 5, "w": 30, "h": 20}],
      "offices": [{"id": "o0", "x": 40, "y": 30, "offsetX": 5, "offsetY": 0}],
      "lootTypes": [
        {"name": "key", "file": "assets/key.obj", "type": "obj", "rotation": 90, "color": "#338844", "scale": 0.03, "value": 10},
        {"name": "wallet", "file": "assets/wallet.obj", "type": "obj", "value": 30}
      ]
    },
    {
      "id": "town",
      "name": "Town",
      "roads": [{"x0": 0, "y0": 0, "y1": 10}],
      "buildings": [],
      "offices": [],
      "lootTypes": []
    }
  ]
}`

func TestParseGameConfig(t *testing.T) {
	cfg, err := ParseGameConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseGameConfig: %v", err)
	}

	if cfg.DefaultDogSpeed != 4.5 {
		t.Errorf("DefaultDogSpeed = %v, want 4.5", cfg.DefaultDogSpeed)
	}
	if cfg.RetirementSeconds != 15.5 {
		t.Errorf("RetirementSeconds = %v, want 15.5", cfg.RetirementSeconds)
	}
	if cfg.LootPeriodSeconds != 5.0 || cfg.LootProbability != 0.5 {
		t.Errorf("loot generator config = (%v, %v), want (5, 0.5)", cfg.LootPeriodSeconds, cfg.LootProbability)
	}
	if len(cfg.Maps) != 2 {
		t.Fatalf("got %d maps, want 2", len(cfg.Maps))
	}

	m := cfg.Maps[0]
	if m.DogSpeed != 2.0 {
		t.Errorf("map1 DogSpeed = %v, want per-map override 2.0", m.DogSpeed)
	}
	if m.BagCapacity != 5 {
		t.Errorf("map1 BagCapacity = %v, want per-map override 5", m.BagCapacity)
	}
	if got := cfg.LootCatalogs["map1"]; len(got) != 2 {
		t.Errorf("map1 catalog size = %d, want 2", len(got))
	} else if got[0].ScoreValue() != 10 || got[1].ScoreValue() != 30 {
		t.Errorf("catalog values = (%d, %d), want (10, 30)", got[0].ScoreValue(), got[1].ScoreValue())
	}

	town := cfg.Maps[1]
	if town.DogSpeed != 4.5 {
		t.Errorf("town DogSpeed = %v, want global default 4.5", town.DogSpeed)
	}
	if town.BagCapacity != 3 {
		t.Errorf("town BagCapacity = %v, want built-in default 3", town.BagCapacity)
	}
}

func TestRoadBounds(t *testing.T) {
	tests := []struct {
		name                   string
		road                   Road
		minX, minY, maxX, maxY float64
	}{
		{
			name: "horizontal",
			road: NewRoad(GridPoint{0, 0}, GridPoint{40, 0}),
			minX: -0.4, minY: -0.4, maxX: 40.4, maxY: 0.4,
		},
		{
			name: "vertical reversed",
			road: NewRoad(GridPoint{5, 30}, GridPoint{5, 10}),
			minX: 4.6, minY: 9.6, maxX: 5.4, maxY: 30.4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.road.Bounds
			if b.Min.X != tt.minX || b.Min.Y != tt.minY || b.Max.X != tt.maxX || b.Max.Y != tt.maxY {
				t.Errorf("bounds = %+v, want (%v,%v)-(%v,%v)", b, tt.minX, tt.minY, tt.maxX, tt.maxY)
			}
		})
	}
}

func TestRoadJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"horizontal", `{"x0":0,"y0":0,"x1":40}`},
		{"vertical", `{"x0":40,"y0":0,"y1":30}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Road
			if err := json.Unmarshal([]byte(tt.in), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			out, err := json.Marshal(r)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(out) != tt.in {
				t.Errorf("round trip = %s, want %s", out, tt.in)
			}
		})
	}
}

func TestRoadJSONRejectsPoints(t *testing.T) {
	var r Road
	if err := json.Unmarshal([]byte(`{"x0":1,"y0":2}`), &r); err == nil {
		t.Error("expected error for road without x1 or y1")
	}
}

func TestValidateMap(t *testing.T) {
	payload := `{
	  "defaultDogSpeed": 1,
	  "lootGeneratorConfig": {"period": 1, "probability": 1},
	  "maps": [{"id": "bad", "name": "Bad", "roads": [{"x0": 0, "y0": 0, "x1": 10}], "offices": [
	    {"id": "o1", "x": 0, "y": 0, "offsetX": 0, "offsetY": 0},
	    {"id": "o1", "x": 1, "y": 1, "offsetX": 0, "offsetY": 0}
	  ]}]
	}`
	if _, err := ParseGameConfig([]byte(payload)); err == nil {
		t.Error("expected error for duplicate office ids")
	}

	if _, err := ParseGameConfig([]byte(`{"maps":[{"id":"empty","name":"E","roads":[]}]}`)); err == nil {
		t.Error("expected error for a map without roads")
	}
}

func TestValidateMapRejectsDiagonalRoad(t *testing.T) {
	m := &Map{
		ID:    "diag",
		Roads: []Road{{Start: GridPoint{0, 0}, End: GridPoint{5, 5}}},
	}
	if err := validateMap(m); err == nil {
		t.Error("expected error for a non-axis-aligned road")
	}
}
