package tokenizer

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// Codec считает токены так же, как их считает OpenAI для выбранной модели.
type Codec struct {
	model string
	enc   tokenizer.Codec
}

// ForModel сначала ищет точное имя модели, затем семейство по префиксу.
func ForModel(model string) (*Codec, error) {
	name := strings.ToLower(strings.TrimSpace(model))
	if name == "" {
		return nil, fmt.Errorf("tokenizer: empty model name")
	}

	enc, err := tokenizer.ForModel(tokenizer.Model(name))
	if err != nil {
		enc, err = forFamily(name)
	}
	if err != nil {
		return nil, fmt.Errorf("tokenizer for %q: %w", model, err)
	}

	return &Codec{model: name, enc: enc}, nil
}

func forFamily(name string) (tokenizer.Codec, error) {
	switch {
	case strings.HasPrefix(name, "gpt-4o"), strings.HasPrefix(name, "gpt-4.1"),
		strings.HasPrefix(name, "o1"), strings.HasPrefix(name, "o3"), strings.HasPrefix(name, "o4"):
		return tokenizer.ForModel(tokenizer.GPT4o)
	case strings.HasPrefix(name, "gpt-4"):
		return tokenizer.ForModel(tokenizer.GPT4)
	case strings.HasPrefix(name, "gpt-3.5"):
		return tokenizer.ForModel(tokenizer.GPT35Turbo)
	}
	return nil, fmt.Errorf("unknown model family")
}

func (c *Codec) Model() string { return c.model }

func (c *Codec) Count(text string) (int, error) {
	ids, _, err := c.enc.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
