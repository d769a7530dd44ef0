package compiler

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
)

// ErrActionFailed is returned by the "fail" built-in action.
var ErrActionFailed = errors.New("action failed")

// RegisterBuiltins registers the built-in guards and actions into reg.
//
// Guards:
//
//	always                 always passes
//	never                  never passes
//	truthy {key}           data[key] is set and not a zero value
//	falsy  {key}           negation of truthy
//	equals {key, value}    data[key] equals value (numbers compare by value)
//	exists {key}           data[key] is present, even if nil
//
// Actions:
//
//	set       {key, value}  data[key] = value
//	unset     {key}         delete(data, key)
//	increment {key, by}     data[key] += by (by defaults to 1)
//	append    {key, value}  data[key] = append(data[key], value)
//	fail      {message}     returns an error wrapping ErrActionFailed
//	log       {message}     writes message to the workflow logger
func RegisterBuiltins(reg *Registry) {
	reg.Register(NewGuard("always", func(context.Context, Data, map[string]any) (bool, error) {
		return true, nil
	}))
	reg.Register(NewGuard("never", func(context.Context, Data, map[string]any) (bool, error) {
		return false, nil
	}))
	reg.Register(NewGuard("truthy", func(_ context.Context, data Data, args map[string]any) (bool, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return false, err
		}
		return truthy(data[key]), nil
	}))
	reg.Register(NewGuard("falsy", func(_ context.Context, data Data, args map[string]any) (bool, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return false, err
		}
		return !truthy(data[key]), nil
	}))
	reg.Register(NewGuard("equals", func(_ context.Context, data Data, args map[string]any) (bool, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return false, err
		}
		want, ok := args["value"]
		if !ok {
			return false, fmt.Errorf("equals: missing argument %q", "value")
		}
		return equal(data[key], want), nil
	}))
	reg.Register(NewGuard("exists", func(_ context.Context, data Data, args map[string]any) (bool, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return false, err
		}
		_, ok := data[key]
		return ok, nil
	}))

	reg.Register(NewAction("set", func(_ context.Context, data Data, args map[string]any) error {
		key, err := stringArg(args, "key")
		if err != nil {
			return err
		}
		value, ok := args["value"]
		if !ok {
			return fmt.Errorf("set: missing argument %q", "value")
		}
		data[key] = value
		return nil
	}))
	reg.Register(NewAction("unset", func(_ context.Context, data Data, args map[string]any) error {
		key, err := stringArg(args, "key")
		if err != nil {
			return err
		}
		delete(data, key)
		return nil
	}))
	reg.Register(NewAction("increment", func(_ context.Context, data Data, args map[string]any) error {
		key, err := stringArg(args, "key")
		if err != nil {
			return err
		}
		by := 1.0
		if raw, ok := args["by"]; ok {
			n, ok := number(raw)
			if !ok {
				return fmt.Errorf("increment: argument %q must be a number, got %T", "by", raw)
			}
			by = n
		}
		current := 0.0
		if raw, ok := data[key]; ok && raw != nil {
			n, ok := number(raw)
			if !ok {
				return fmt.Errorf("increment: %q holds %T, not a number", key, raw)
			}
			current = n
		}
		data[key] = current + by
		return nil
	}))
	reg.Register(NewAction("append", func(_ context.Context, data Data, args map[string]any) error {
		key, err := stringArg(args, "key")
		if err != nil {
			return err
		}
		value, ok := args["value"]
		if !ok {
			return fmt.Errorf("append: missing argument %q", "value")
		}
		var list []any
		switch cur := data[key].(type) {
		case nil:
		case []any:
			list = append(list, cur...)
		default:
			return fmt.Errorf("append: %q holds %T, not a list", key, cur)
		}
		data[key] = append(list, value)
		return nil
	}))
	reg.Register(NewAction("fail", func(_ context.Context, _ Data, args map[string]any) error {
		msg, _ := args["message"].(string)
		if msg == "" {
			return ErrActionFailed
		}
		return fmt.Errorf("%w: %s", ErrActionFailed, msg)
	}))
	reg.Register(NewAction("log", func(_ context.Context, data Data, args map[string]any) error {
		msg, _ := args["message"].(string)
		logging.New("workflow").Info(msg, "keys", len(data))
		return nil
	}))
}

func stringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string, got %T", name, raw)
	}
	return s, nil
}

// number converts the numeric types produced by encoding/json, toml and Go
// callers to float64.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	return !reflect.ValueOf(v).IsZero()
}

func equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}
