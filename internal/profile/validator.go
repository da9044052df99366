package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/game-profile-v1.json
var gameProfileSchemaJSON string

// Validator checks profile documents before they are decoded.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("game-profile-v1.json",
		strings.NewReader(gameProfileSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("game-profile-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks one profile document. Failures wrap ErrInvalidProfile.
func (v *Validator) Validate(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrInvalidProfile, err)
	}

	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	return nil
}

var defaultValidator = sync.OnceValues(NewValidator)

// Decode validates data and decodes it into a profile.
func Decode(data []byte) (GameProfile, error) {
	v, err := defaultValidator()
	if err != nil {
		return GameProfile{}, err
	}
	if err := v.Validate(data); err != nil {
		return GameProfile{}, err
	}
	var p GameProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return GameProfile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return p, nil
}
