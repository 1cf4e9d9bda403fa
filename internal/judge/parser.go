package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/microsoft/skillcheck/internal/models"
)

// ErrUnparsable reports judge output with no extractable JSON object.
var ErrUnparsable = errors.New("no JSON object in judge output")

// Verdict is a judge's normalized structured output: flat binary detection
// per issue id, per-issue reasoning, and the recommendation read.
type Verdict struct {
	Recommendation     models.Recommendation
	Issues             map[string]int
	Reasoning          map[string]string
	FalsePositiveCount int
	FalsePositives     []string
}

// rawVerdict matches the judge's JSON contract before normalization. Issue
// values stay untyped because judges emit either a bare 0/1 or an object
// with detected and reasoning.
type rawVerdict struct {
	Recommendation rawRecommendation `mapstructure:"recommendation"`
	Issues         map[string]any    `mapstructure:"issues"`
	FPCount        int               `mapstructure:"false_positive_count"`
	FPs            []string          `mapstructure:"false_positives"`
}

type rawRecommendation struct {
	ModelSaid string `mapstructure:"model_said"`
	Correct   string `mapstructure:"correct"`
	Match     bool   `mapstructure:"match"`
	Reasoning string `mapstructure:"reasoning"`
}

type rawIssue struct {
	Detected  int    `mapstructure:"detected"`
	Reasoning string `mapstructure:"reasoning"`
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
	braceSpan  = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseVerdict extracts the judge's JSON object from raw model output and
// normalizes it. Judges are asked for bare JSON but routinely wrap it in a
// code fence or lead with chain-of-thought text, so extraction is tried in
// order: the whole text, the first fenced block, then the widest brace span.
func ParseVerdict(raw string) (*Verdict, error) {
	obj, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	decoded := rawVerdict{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &decoded,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(obj); err != nil {
		return nil, fmt.Errorf("judge output shape: %w", err)
	}

	verdict := &Verdict{
		Recommendation: models.Recommendation{
			ModelSaid: decoded.Recommendation.ModelSaid,
			Correct:   decoded.Recommendation.Correct,
			Match:     decoded.Recommendation.Match,
		},
		Issues:             make(map[string]int, len(decoded.Issues)),
		Reasoning:          map[string]string{},
		FalsePositiveCount: decoded.FPCount,
		FalsePositives:     decoded.FPs,
	}
	if decoded.Recommendation.Reasoning != "" {
		verdict.Reasoning["recommendation"] = decoded.Recommendation.Reasoning
	}

	for id, value := range decoded.Issues {
		switch v := value.(type) {
		case map[string]any:
			issue := rawIssue{}
			if err := mapstructure.WeakDecode(v, &issue); err != nil {
				return nil, fmt.Errorf("issue %s: %w", id, err)
			}
			verdict.Issues[id] = issue.Detected
			if issue.Reasoning != "" {
				verdict.Reasoning[id] = issue.Reasoning
			}
		default:
			detected := 0
			if err := mapstructure.WeakDecode(v, &detected); err != nil {
				return nil, fmt.Errorf("issue %s: %w", id, err)
			}
			verdict.Issues[id] = detected
		}
	}

	return verdict, nil
}

func extractJSON(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrUnparsable
	}

	if strings.HasPrefix(text, "{") {
		if obj, ok := tryUnmarshal(text); ok {
			return obj, nil
		}
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if obj, ok := tryUnmarshal(strings.TrimSpace(m[1])); ok {
			return obj, nil
		}
	}

	if span := braceSpan.FindString(text); span != "" {
		if obj, ok := tryUnmarshal(span); ok {
			return obj, nil
		}
	}

	return nil, ErrUnparsable
}

func tryUnmarshal(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	return obj, true
}
