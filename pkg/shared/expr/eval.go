/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package expr evaluates boolean filter expressions against event fields.
//
// Expressions are written in the antonmedv/expr language. Besides the fields, the
// environment has the sprig function map under "sprig" and the json, int and string
// helpers, e.g.
//
//	aqi >= 3 && pm2_5 > 10
//	sprig.contains("2024-03", string(time))
package expr

import (
	"fmt"
	"strconv"

	"github.com/Masterminds/sprig/v3"
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/goccy/go-json"
)

var sprigFuncMap = sprig.GenericFuncMap()

// Filter is a compiled boolean expression. It is safe for concurrent use.
type Filter struct {
	expression string
	program    *vm.Program
}

// NewFilter compiles expression against an environment shaped like sample, so that
// unknown fields and non boolean results are rejected up front.
func NewFilter(expression string, sample map[string]interface{}) (*Filter, error) {
	program, err := expr.Compile(expression, expr.Env(getFuncMap(sample)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("unable to compile expression '%s': %s", expression, err)
	}
	return &Filter{expression: expression, program: program}, nil
}

// Match evaluates the filter on fields.
func (f *Filter) Match(fields map[string]interface{}) (bool, error) {
	result, err := expr.Run(f.program, getFuncMap(fields))
	if err != nil {
		return false, fmt.Errorf("unable to evaluate expression '%s': %s", f.expression, err)
	}
	resultBool, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unable to cast expression result '%v' to bool", result)
	}
	return resultBool, nil
}

func (f *Filter) String() string {
	return f.expression
}

// EvalBool compiles and evaluates expression in one go.
func EvalBool(expression string, fields map[string]interface{}) (bool, error) {
	f, err := NewFilter(expression, fields)
	if err != nil {
		return false, err
	}
	return f.Match(fields)
}

func getFuncMap(m map[string]interface{}) map[string]interface{} {
	env := make(map[string]interface{}, len(m)+4)
	for k, v := range m {
		env[k] = v
	}
	env["sprig"] = sprigFuncMap
	env["json"] = _json
	env["int"] = _int
	env["string"] = _string
	return env
}

func _int(v interface{}) int {
	switch w := v.(type) {
	case []byte:
		i, err := strconv.Atoi(string(w))
		if err != nil {
			panic(fmt.Errorf("cannot convert %q an int", v))
		}
		return i
	case string:
		i, err := strconv.Atoi(w)
		if err != nil {
			panic(fmt.Errorf("cannot convert %q to int", v))
		}
		return i
	case float64:
		return int(w)
	case int:
		return w
	default:
		panic(fmt.Errorf("cannot convert %q to int", v))
	}
}

func _string(v interface{}) string {
	switch w := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(w)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func _json(v interface{}) map[string]interface{} {
	x := make(map[string]interface{})
	switch w := v.(type) {
	case nil:
		return nil
	case []byte:
		if err := json.Unmarshal(w, &x); err != nil {
			panic(fmt.Errorf("cannot convert %q to object: %v", v, err))
		}
		return x
	case string:
		if err := json.Unmarshal([]byte(w), &x); err != nil {
			panic(fmt.Errorf("cannot convert %q to object: %v", v, err))
		}
		return x
	default:
		panic("unknown type")
	}
}
