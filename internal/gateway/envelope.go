// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/devroot/devroot/internal/session"
)

// Schema identifiers.
const (
	EnvelopeSchemaID = "https://devroot.local/schemas/auth-envelope.json"
	UserSchemaID     = "https://devroot.local/schemas/user.json"
)

// The user object is required unless the server reports success:false.
const envelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://devroot.local/schemas/auth-envelope.json",
  "title": "DevRoot auth response",
  "type": "object",
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": ["string", "null"]}
  },
  "if": {
    "properties": {"success": {"const": false}},
    "required": ["success"]
  },
  "else": {
    "required": ["user"],
    "properties": {"user": {"$ref": "user.json"}}
  }
}`

var (
	envelopeOnce   sync.Once
	envelopeCached *jschema.Schema
	envelopeErr    error
)

// GenerateUserSchema reflects the user profile schema. Unknown fields are
// allowed; only the id is required, and every other field may be null.
func GenerateUserSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&session.UserProfile{})
	schema.ID = jsonschema.ID(UserSchemaID)
	schema.Title = "DevRoot user profile"
	allowNullOptional(schema)

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user schema: %w", err)
	}
	return data, nil
}

// allowNullOptional lets every non-required property also be null.
func allowNullOptional(schema *jsonschema.Schema) {
	if schema.Properties == nil {
		return
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		if slices.Contains(schema.Required, pair.Key) {
			continue
		}
		schema.Properties.Set(pair.Key, &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{pair.Value, {Type: "null"}},
		})
	}
}

// EnvelopeSchema returns the response envelope schema document.
func EnvelopeSchema() []byte {
	return []byte(envelopeSchema)
}

func compiledEnvelope() (*jschema.Schema, error) {
	envelopeOnce.Do(func() {
		envelopeCached, envelopeErr = compileEnvelope()
	})
	return envelopeCached, envelopeErr
}

func compileEnvelope() (*jschema.Schema, error) {
	userSchema, err := GenerateUserSchema()
	if err != nil {
		return nil, err
	}
	userDoc, err := jschema.UnmarshalJSON(bytes.NewReader(userSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse user schema: %w", err)
	}
	envDoc, err := jschema.UnmarshalJSON(bytes.NewReader(EnvelopeSchema()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse envelope schema: %w", err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource(UserSchemaID, userDoc); err != nil {
		return nil, fmt.Errorf("failed to add user schema: %w", err)
	}
	if err := c.AddResource(EnvelopeSchemaID, envDoc); err != nil {
		return nil, fmt.Errorf("failed to add envelope schema: %w", err)
	}
	sch, err := c.Compile(EnvelopeSchemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to compile envelope schema: %w", err)
	}
	return sch, nil
}

// envelope is a 2xx body from the identity endpoint.
type envelope struct {
	Success *bool                `json:"success"`
	Message *string              `json:"message"`
	User    *session.UserProfile `json:"user"`
}

// rejected reports an explicit success:false.
func (e envelope) rejected() bool {
	return e.Success != nil && !*e.Success
}

func (e envelope) message() string {
	if e.Message == nil {
		return ""
	}
	return *e.Message
}

// decodeEnvelope validates body against the envelope schema and decodes it.
func decodeEnvelope(body []byte) (envelope, error) {
	sch, err := compiledEnvelope()
	if err != nil {
		return envelope{}, err
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return envelope{}, fmt.Errorf("response is not JSON: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return envelope{}, fmt.Errorf("response does not match envelope: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return env, nil
}

// errorBody is a non-2xx body.
type errorBody struct {
	Error string `json:"error"`
}

// statusMessage extracts the "error" field, falling back to a generic text.
func statusMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error == "" {
		return MessageStatusFallback
	}
	return eb.Error
}
