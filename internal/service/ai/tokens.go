package ai

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/pkoukk/tiktoken-go"
)

var debugEnabled = strings.EqualFold(os.Getenv("REVIEW_DEBUG"), "1")

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf(format, args...)
	}
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// countTokens falls back to a rough four bytes per token when no encoding is available.
func countTokens(text string) int {
	encOnce.Do(func() {
		e, err := tiktoken.EncodingForModel("gpt-4")
		if err != nil {
			log.Printf("token encoding unavailable: %v", err)
			return
		}
		enc = e
	})
	if enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func logPromptSize(op string, msgs []*schema.Message) {
	if !debugEnabled {
		return
	}
	total := 0
	for _, m := range msgs {
		total += countTokens(m.Content)
	}
	debugLog("%s prompt: %d messages, %d tokens", op, len(msgs), total)
}
