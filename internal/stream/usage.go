package stream

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// tokensPerMessage approximates the per-message framing overhead.
const tokensPerMessage = 3

func getCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.O200kBase)
		if err != nil {
			return
		}
		codec = c
	})
	return codec
}

func countTokens(s string) int64 {
	if s == "" {
		return 0
	}
	enc := getCodec()
	if enc == nil {
		// Tokenizer unavailable; fall back to a bytes/4 heuristic.
		return int64(len(s)+3) / 4
	}
	ids, _, err := enc.Encode(s)
	if err != nil {
		return int64(len(s)+3) / 4
	}
	return int64(len(ids))
}

// EstimateUsage approximates token usage for a request and its collected
// completion. Used only when the engine emitted no usage event; the result
// is marked Estimated.
func EstimateUsage(req Request, completion string) *Usage {
	var input int64
	for _, msg := range req.Messages {
		input += tokensPerMessage
		input += countTokens(string(msg.Role))
		input += countTokens(msg.Content)
		for _, part := range msg.Parts {
			input += countTokens(part.Text)
			input += countTokens(string(part.Input))
			input += countTokens(string(part.Output))
		}
	}
	for _, tool := range req.Tools {
		input += countTokens(tool.Name)
		input += countTokens(tool.Description)
		input += countTokens(string(tool.Parameters))
	}

	output := countTokens(completion)
	return &Usage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
		Estimated:    true,
	}
}
