package prompt

import (
    "encoding/json"
    "fmt"
    "strings"
    "time"

    "github.com/bryanwahyu/brainscan/internal/domain/ai"
    domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
    return `You are a medical imaging assistant that reviews brain MRI and CT scans. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- "analysis" is a concise clinical description: detected abnormalities (e.g. tumor, hemorrhage, lesion), their approximate location, and a plain-language summary. Say "No abnormality detected" when appropriate.
- "confidence" is a number between 0 and 1 describing how certain you are of the analysis.
- "timestamp" is the RFC3339 UTC time the analysis was produced.
- If the image is not a brain scan, say so in "analysis" and use a low confidence.

Schema (example):
{
  "analysis": "<string>",
  "confidence": 0.0,
  "timestamp": "2006-01-02T15:04:05Z"
}`
}

// GetUserPrompt is the text part sent alongside the image.
func GetUserPrompt() string {
    return "Analyze this brain scan image and respond with the JSON per schema."
}

// Result is the raw schema returned by the model.
type Result struct {
    Analysis   string   `json:"analysis"`
    Confidence *float64 `json:"confidence"`
    Timestamp  string   `json:"timestamp"`
}

// ParseDiagnosis turns model output into a Diagnosis. Missing analysis,
// missing confidence or confidence outside [0,1] are ErrMalformedResponse;
// values are never clamped. now is used when the timestamp is absent.
func ParseDiagnosis(content string, now time.Time) (domain.Diagnosis, error) {
    raw := stripFences(content)
    if raw == "" {
        return domain.Diagnosis{}, fmt.Errorf("%w: empty content", ai.ErrMalformedResponse)
    }

    var res Result
    if err := json.Unmarshal([]byte(raw), &res); err != nil {
        return domain.Diagnosis{}, fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
    }
    text := strings.TrimSpace(res.Analysis)
    if text == "" {
        return domain.Diagnosis{}, fmt.Errorf("%w: analysis missing", ai.ErrMalformedResponse)
    }
    if res.Confidence == nil {
        return domain.Diagnosis{}, fmt.Errorf("%w: confidence missing", ai.ErrMalformedResponse)
    }
    c := *res.Confidence
    if c < 0 || c > 1 || c != c {
        return domain.Diagnosis{}, fmt.Errorf("%w: confidence %v outside [0,1]", ai.ErrMalformedResponse, c)
    }

    at := now.UTC()
    if ts := strings.TrimSpace(res.Timestamp); ts != "" {
        parsed, err := time.Parse(time.RFC3339, ts)
        if err != nil {
            return domain.Diagnosis{}, fmt.Errorf("%w: timestamp %q: %v", ai.ErrMalformedResponse, ts, err)
        }
        at = parsed.UTC()
    }

    return domain.Diagnosis{Text: text, Confidence: c, AnalyzedAt: at}, nil
}

// stripFences removes a ```json ... ``` wrapper some models add anyway.
func stripFences(s string) string {
    s = strings.TrimSpace(s)
    if !strings.HasPrefix(s, "```") {
        return s
    }
    s = strings.TrimPrefix(s, "```")
    if i := strings.IndexByte(s, '\n'); i >= 0 {
        s = s[i+1:]
    }
    s = strings.TrimSuffix(strings.TrimSpace(s), "```")
    return strings.TrimSpace(s)
}
