package template

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/submerge/internal/fetch"
)

func TestBuiltin(t *testing.T) {
	doc, err := Builtin()
	require.NoError(t, err)
	require.True(t, doc.HasGroups)
	assert.Empty(t, doc.Nodes)
	assert.Equal(t, "手动选择", doc.Groups[0].Name())
	assert.Equal(t, "mixed-port", doc.Settings.Keys()[0])

	doc.Groups[0].SetMembers([]string{"x"})
	again, err := Builtin()
	require.NoError(t, err)
	members, _ := again.Groups[0].Members()
	assert.Equal(t, []string{"自动选择", "负载散列", "负载轮询", "DIRECT"}, members, "each call returns a copy")
}

func TestLoad_Builtin(t *testing.T) {
	doc, err := Load(context.Background(), nil, " Builtin ", fetch.SourceOptions{})
	require.NoError(t, err)
	assert.Len(t, doc.Groups, 4)
}

func TestLoad_RemoteDropsNodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mode: rule\nproxies:\n  - {name: a, type: ss, server: a.com, port: 1}\nrules:\n  - MATCH,DIRECT\n"))
	}))
	defer ts.Close()

	doc, err := Load(context.Background(), fetch.New(nil), ts.URL, fetch.SourceOptions{})
	require.NoError(t, err)
	assert.Empty(t, doc.Nodes)
	assert.False(t, doc.HasGroups)
	assert.Equal(t, []string{"mode", "proxies", "rules"}, doc.Settings.Keys())
}

func TestLoad_FetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := Load(context.Background(), fetch.New(nil), ts.URL, fetch.SourceOptions{})
	var te *TemplateError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "TEMPLATE_FETCH_ERROR", te.AppError.Code)
	assert.Equal(t, "HTTP 404 Not Found", Reason(err))

	var fe *fetch.FetchError
	assert.True(t, errors.As(err, &fe), "fetch error stays reachable")
}
