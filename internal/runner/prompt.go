package runner

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Iron-Ham/agentbridge/internal/errors"
)

// promptPattern matches "<digits>. text" and "<digits>) text".
var promptPattern = regexp.MustCompile(`^\s*(\d+)[.)]\s*(.+)$`)

// Prompt is one numbered line of a prompt list.
type Prompt struct {
	Ordinal int    `json:"ordinal" yaml:"ordinal"`
	Text    string `json:"text" yaml:"text"`
}

// ParsePrompts reads a prompt list. Non-matching lines are skipped. The
// result is sorted by ordinal; prompts sharing an ordinal keep file order.
func ParsePrompts(r io.Reader) ([]Prompt, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read prompts")
	}

	var prompts []Prompt
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := promptPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ordinal, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		prompts = append(prompts, Prompt{Ordinal: ordinal, Text: text})
	}

	slices.SortStableFunc(prompts, func(a, b Prompt) int {
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})
	return prompts, nil
}

// LoadPrompts parses the prompt list at path. It fails with
// errors.ErrPromptsNotFound when the file is missing and errors.ErrNoPrompts
// when it holds no numbered prompt.
func LoadPrompts(path string) ([]Prompt, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrPromptsNotFound, path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	prompts, err := ParsePrompts(f)
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w in %s", errors.ErrNoPrompts, path)
	}
	return prompts, nil
}
