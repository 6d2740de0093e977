package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"

	"github.com/vine-io/formflow/api"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	out := bytes.NewBuffer(nil)
	root.SetOut(out)
	root.SetErr(out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if !assert.NoError(t, os.WriteFile(p, []byte(content), 0o644)) {
		t.FailNow()
	}
	return p
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "formflow.yaml", `
etcd:
  endpoints: ["10.0.0.1:2379"]
  dialTimeout: 5s
  leaseTTL: 10m
mapping:
  strictness: warn
workers: 0
`)

	cfg, err := loadConfig(p)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, []string{"10.0.0.1:2379"}, cfg.Etcd.Endpoints)
	assert.Equal(t, time.Second*5, cfg.Etcd.DialTimeout)
	assert.Equal(t, time.Minute*10, cfg.Etcd.LeaseTTL)
	assert.Equal(t, "/formflow", cfg.Etcd.Prefix)
	assert.Equal(t, "warn", cfg.Mapping.Strictness)
	assert.Equal(t, 1, cfg.Workers)

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "mapping:\n  strictness: loose\n")
	_, err = loadConfig(bad)
	assert.Error(t, err)
}

func TestXML2JSONStdin(t *testing.T) {
	out, err := execute(t, "<Deudor><ID>75</ID><Nombre>Ana</Nombre></Deudor>", "xml2json")
	if !assert.NoError(t, err) {
		return
	}

	got := map[string]any{}
	assert.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]any{"deudor": map[string]any{"id": "75", "nombre": "Ana"}}, got)

	_, err = execute(t, "<Invalid><Unclosed>", "xml2json")
	assert.Error(t, err)
}

func TestXML2JSONFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "workers: 2\n")
	files := []string{
		writeFile(t, dir, "a.xml", "<A><B>1</B></A>"),
		writeFile(t, dir, "b.xml", "<A><B>1</B><B>2</B></A>"),
		writeFile(t, dir, "c.xml", "<A>"),
	}

	out, err := execute(t, "", append([]string{"xml2json", "--config", cfg}, files...)...)
	assert.Error(t, err)

	results := make([]*convertResult, 0)
	if !assert.NoError(t, json.Unmarshal([]byte(out), &results)) {
		return
	}
	if !assert.Len(t, results, 3) {
		return
	}
	assert.Equal(t, files[0], results[0].File)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": "1"}}, results[0].Value)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": []any{"1", "2"}}}, results[1].Value)
	assert.NotEmpty(t, results[2].Error)
}

func TestEncodeDecode(t *testing.T) {
	out, err := execute(t, "", "encode", `{"b":1,"a":[true]}`)
	if assert.NoError(t, err) {
		assert.JSONEq(t, `{"value":"{\"a\":[true],\"b\":1}","type":"SingleValue"}`, out)
	}

	out, err = execute(t, "", "encode", "hello")
	if assert.NoError(t, err) {
		assert.JSONEq(t, `{"value":"hello","type":"SingleValue"}`, out)
	}

	_, err = execute(t, "", "encode", "null")
	assert.Error(t, err)

	out, err = execute(t, "", "decode", "1500.5")
	if assert.NoError(t, err) {
		assert.JSONEq(t, `{"value":1500.5,"go":"float64"}`, out)
	}

	_, err = execute(t, "", "decode", "")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	m := writeFile(t, dir, "mapping.yaml", `
amountStr:
  target: amount
  transform: float
comments: observaciones
`)

	out, err := execute(t, `{"amountStr":"1500.50","comments":"ok","ignored":"x"}`,
		"build", "--mapping", m, "--set", "submittedBy=ana", "--config", filepath.Join(dir, "none.yaml"), "--strictness", "ignore")
	if !assert.NoError(t, err) {
		return
	}

	got := make([]*api.Parameter, 0)
	assert.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []*api.Parameter{
		{Name: "amount", Value: "1500.5", Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "observaciones", Value: "ok", Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "submittedBy", Value: "ana", Kind: api.KindSingleValue, Direction: api.DirectionIn},
	}, got)

	out, err = execute(t, `{"b":"2","a":1}`, "build")
	if assert.NoError(t, err) {
		assert.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Name)
	}

	_, err = execute(t, `{}`, "build", "--set", "novalue")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	descriptors := `[
  {"name":"amount","parameterType":1,"parameterDirection":1,"type":"Decimal","value":"10"},
  {"name":"stage","parameterType":1,"parameterDirection":1,"isVariable":true},
  {"name":"result","parameterType":1,"parameterDirection":2},
  {"name":"user","parameterType":1,"parameterDirection":1,"isSystemParameter":true}
]`

	out, err := execute(t, descriptors, "filter", "--role", "start")
	if !assert.NoError(t, err) {
		return
	}
	fields := make([]map[string]any, 0)
	assert.NoError(t, json.Unmarshal([]byte(out), &fields))
	if assert.Len(t, fields, 1) {
		assert.Equal(t, "amount", fields[0]["name"])
		assert.Equal(t, "number", fields[0]["fieldType"])
		assert.Equal(t, true, fields[0]["required"])
		assert.Equal(t, float64(10), fields[0]["default"])
	}

	out, err = execute(t, descriptors, "filter", "-r", "continue")
	if assert.NoError(t, err) {
		assert.NoError(t, json.Unmarshal([]byte(out), &fields))
		assert.Len(t, fields, 2)
	}

	_, err = execute(t, descriptors, "filter", "-r", "other")
	assert.Error(t, err)
}

func TestLockFlagsRequired(t *testing.T) {
	_, err := execute(t, "", "lock", "--instance", "inst-1")
	assert.Error(t, err)
}
