package protocol

import (
	"math"

	"go.uber.org/zap"
)

// Validator checks raw inbound frames against the protocol schema. Callers
// only learn valid / not valid; the reason goes to the debug log.
type Validator struct {
	schema *Schema
	logger *zap.Logger
}

// ValidatedMessage is the outcome of a successful validation: the matched
// command and the frame's parameters (everything but the command field).
type ValidatedMessage struct {
	Command Command
	Params  map[string]any
}

func NewValidator(schema *Schema, logger *zap.Logger) *Validator {
	return &Validator{schema: schema, logger: logger}
}

// Validate runs all checks on a raw frame. Every check must pass; a frame
// failing any one of them is reported as not valid without detail.
func (v *Validator) Validate(frame map[string]any) (*ValidatedMessage, bool) {
	commandID, ok := v.commandField(frame)
	if !ok {
		return nil, false
	}

	cmd, ok := v.schema.Command(commandID)
	if !ok {
		v.logger.Debug("unknown command", zap.String("command", commandID))
		return nil, false
	}

	if !v.paramsExist(cmd, frame) {
		return nil, false
	}
	if !v.paramTypes(cmd, frame) {
		return nil, false
	}
	if !v.paramsNotEmpty(frame) {
		return nil, false
	}

	params := make(map[string]any, len(frame))
	for key, value := range frame {
		if key == "command" {
			continue
		}
		params[key] = value
	}

	return &ValidatedMessage{Command: cmd, Params: params}, true
}

func (v *Validator) commandField(frame map[string]any) (string, bool) {
	raw, ok := frame["command"]
	if !ok {
		v.logger.Debug("frame has no command field")
		return "", false
	}
	commandID, ok := raw.(string)
	if !ok || commandID == "" {
		v.logger.Debug("command field is not a string")
		return "", false
	}
	return commandID, true
}

func (v *Validator) paramsExist(cmd Command, frame map[string]any) bool {
	for _, param := range cmd.Params {
		if _, ok := frame[param.ID]; !ok {
			v.logger.Debug("missing parameter",
				zap.String("command", cmd.ID),
				zap.String("param", param.ID),
			)
			return false
		}
	}
	return true
}

func (v *Validator) paramTypes(cmd Command, frame map[string]any) bool {
	for _, param := range cmd.Params {
		if !matchesType(frame[param.ID], param.Type) {
			v.logger.Debug("parameter has wrong type",
				zap.String("command", cmd.ID),
				zap.String("param", param.ID),
				zap.String("expected", param.Type),
			)
			return false
		}
	}
	return true
}

// paramsNotEmpty rejects empty strings and arrays anywhere in the frame
// outside the command field, declared or not.
func (v *Validator) paramsNotEmpty(frame map[string]any) bool {
	for key, value := range frame {
		if key == "command" {
			continue
		}
		switch typed := value.(type) {
		case string:
			if len(typed) == 0 {
				v.logger.Debug("empty string parameter", zap.String("param", key))
				return false
			}
		case []any:
			if len(typed) == 0 {
				v.logger.Debug("empty array parameter", zap.String("param", key))
				return false
			}
		}
	}
	return true
}

// matchesType checks a decoded JSON value against a declared primitive type.
// JSON numbers decode as float64, so "integer" additionally requires an
// integral value.
func matchesType(value any, declared string) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "integer":
		num, ok := value.(float64)
		return ok && num == math.Trunc(num)
	case "null":
		return value == nil
	default:
		return false
	}
}
