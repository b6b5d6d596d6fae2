package cli

import (
	"reflect"

	"github.com/alecthomas/kong"

	"github.com/frobware/go-pfq"
)

// policyMapper creates a Kong mapper for pfq.Policy.
func policyMapper() kong.MapperFunc {
	return func(ctx *kong.DecodeContext, target reflect.Value) error {
		var s string
		if err := ctx.Scan.PopValueInto("policy", &s); err != nil {
			return err
		}
		p, err := pfq.ParsePolicy(s)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(p))
		return nil
	}
}

// classMaskMapper creates a Kong mapper for pfq.ClassMask.
func classMaskMapper() kong.MapperFunc {
	return func(ctx *kong.DecodeContext, target reflect.Value) error {
		var s string
		if err := ctx.Scan.PopValueInto("class-mask", &s); err != nil {
			return err
		}
		m, err := pfq.ParseClassMask(s)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(m))
		return nil
	}
}

// indexMapper creates a Kong mapper for Index.
func indexMapper() kong.MapperFunc {
	return func(ctx *kong.DecodeContext, target reflect.Value) error {
		var s string
		if err := ctx.Scan.PopValueInto("index", &s); err != nil {
			return err
		}
		i, err := ParseIndex(s)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(i))
		return nil
	}
}
