package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	got  GenerateRequest
	resp *GenerateResponse
	err  error
}

func (f *fakeRuntime) Generate(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestTemplateNarratorReturnsFacts(t *testing.T) {
	n, err := GetNarrator("", RuntimeConfig{})
	require.NoError(t, err)
	out, err := n.Narrate(context.Background(), NarrationRequest{Query: "q", Facts: "3 anomalies"})
	require.NoError(t, err)
	assert.Equal(t, "3 anomalies", out)
}

func TestChatNarratorBuildsPrompt(t *testing.T) {
	rt := &fakeRuntime{resp: &GenerateResponse{Choices: []Choice{{Message: Message{Content: "  narrated \n"}}}}}
	n := &ChatNarrator{Runtime: rt, Model: "m"}
	out, err := n.Narrate(context.Background(), NarrationRequest{Query: "any outliers?", Intent: "anomaly", Facts: "Row 3 deviates"})
	require.NoError(t, err)
	assert.Equal(t, "narrated", out)
	require.Len(t, rt.got.Messages, 2)
	assert.Equal(t, "system", rt.got.Messages[0].Role)
	assert.True(t, strings.Contains(rt.got.Messages[1].Content, "Row 3 deviates"))
	assert.Equal(t, "m", rt.got.Model)
}

func TestChatNarratorPropagatesErrors(t *testing.T) {
	n := &ChatNarrator{Runtime: &fakeRuntime{err: &ServerError{APIError: &APIError{StatusCode: 502}}}, Model: "m"}
	_, err := n.Narrate(context.Background(), NarrationRequest{})
	var se *ServerError
	assert.True(t, errors.As(err, &se))

	n = &ChatNarrator{Runtime: &fakeRuntime{resp: &GenerateResponse{}}, Model: "m"}
	_, err = n.Narrate(context.Background(), NarrationRequest{})
	assert.Error(t, err)
}

func TestGetNarratorUnknownProvider(t *testing.T) {
	_, err := GetNarrator("nope", RuntimeConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template")
	assert.ElementsMatch(t, []string{ProviderOllama, ProviderOpenRouter, ProviderTemplate}, Providers())
}
