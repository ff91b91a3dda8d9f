package wikidata

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Properties read from municipality entities.
const (
	PropPopulation  = "P1082"
	PropCoordinates = "P625"
	PropPostalCode  = "P281"
	PropCoatOfArms  = "P94"
	PropAnnuaire    = "P6671"
)

// Entity is a Wikidata item with its claims.
type Entity struct {
	Claims  map[string][]Claim `json:"claims"`
	Missing *string            `json:"missing,omitempty"`
	ID      string             `json:"id"`
}

// Claim is a single statement. Only the main snak is decoded.
type Claim struct {
	Mainsnak Snak `json:"mainsnak"`
}

// Snak holds the value of a claim. DataValue is nil for "no value" snaks.
type Snak struct {
	DataValue *DataValue `json:"datavalue"`
	Property  string     `json:"property"`
}

// DataValue is the typed value of a snak.
type DataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Latest returns the raw value of the last claim of prop, which is the most
// recent one for time series such as population.
func (e *Entity) Latest(prop string) (json.RawMessage, error) {
	claims := e.Claims[prop]
	if len(claims) == 0 {
		return nil, fmt.Errorf("%s: %w", prop, ErrNotFound)
	}

	dv := claims[len(claims)-1].Mainsnak.DataValue
	if dv == nil || len(dv.Value) == 0 {
		return nil, fmt.Errorf("%s: %w", prop, ErrNotFound)
	}

	return dv.Value, nil
}

// String returns the latest string value of prop.
func (e *Entity) String(prop string) (string, error) {
	raw, err := e.Latest(prop)
	if err != nil {
		return "", err
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: %w", prop, err)
	}

	return s, nil
}

// Population returns the latest population amount.
func (e *Entity) Population() (int, error) {
	raw, err := e.Latest(PropPopulation)
	if err != nil {
		return 0, err
	}

	var q struct {
		Amount string `json:"amount"`
	}
	if err := json.Unmarshal(raw, &q); err != nil {
		return 0, fmt.Errorf("%s: %w", PropPopulation, err)
	}

	// amounts are signed decimals such as "+38351"
	f, err := strconv.ParseFloat(q.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", PropPopulation, err)
	}

	return int(math.Trunc(f)), nil
}

// Coordinates returns the latest globe-coordinate value as a generic object
// (latitude, longitude, altitude, precision, globe).
func (e *Entity) Coordinates() (map[string]any, error) {
	raw, err := e.Latest(PropCoordinates)
	if err != nil {
		return nil, err
	}

	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", PropCoordinates, err)
	}

	if _, ok := v["latitude"].(float64); !ok {
		return nil, fmt.Errorf("%s: no latitude: %w", PropCoordinates, ErrNotFound)
	}
	if _, ok := v["longitude"].(float64); !ok {
		return nil, fmt.Errorf("%s: no longitude: %w", PropCoordinates, ErrNotFound)
	}

	return v, nil
}
