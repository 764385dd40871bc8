package intake

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed scripts.yaml
var defaultScriptsYAML []byte

// StateScript holds the lines spoken for one state.
type StateScript struct {
	Question string `yaml:"question"`
	Rephrase string `yaml:"rephrase"`
	Confirm  string `yaml:"confirm"`
}

// CategoryRule maps caller phrases onto an issue category.
type CategoryRule struct {
	Category string   `yaml:"category"`
	Phrases  []string `yaml:"phrases"`
}

// Keywords groups the phrase lists used for classification of utterances.
type Keywords struct {
	ASAP          []string `yaml:"asap"`
	CanWait       []string `yaml:"can_wait"`
	Cost          []string `yaml:"cost"`
	OffTopic      []string `yaml:"off_topic"`
	HVAC          []string `yaml:"hvac"`
	NextAvailable []string `yaml:"next_available"`
	Affirmative   []string `yaml:"affirmative"`
	Negative      []string `yaml:"negative"`
	NonAnswer     []string `yaml:"non_answer"`
	NonAnswerOnly []string `yaml:"non_answer_whole"`
	Filler        []string `yaml:"filler"`
}

// Scripts is the parsed script table.
type Scripts struct {
	Greeting         string                `yaml:"greeting"`
	Redirect         string                `yaml:"redirect"`
	Pricing          string                `yaml:"pricing"`
	Closing          string                `yaml:"closing"`
	Acknowledgements []string              `yaml:"acknowledgements"`
	States           map[State]StateScript `yaml:"states"`
	Categories       []CategoryRule        `yaml:"categories"`
	ExtremeWords     []string              `yaml:"extreme_words"`
	Keywords         Keywords              `yaml:"keywords"`
}

// ParseScripts decodes a script table and checks that every asking state
// has a question.
func ParseScripts(data []byte) (*Scripts, error) {
	var scripts Scripts
	if err := yaml.Unmarshal(data, &scripts); err != nil {
		return nil, fmt.Errorf("parse intake scripts: %w", err)
	}
	if strings.TrimSpace(scripts.Greeting) == "" || strings.TrimSpace(scripts.Closing) == "" {
		return nil, fmt.Errorf("parse intake scripts: greeting and closing are required")
	}
	if len(scripts.Acknowledgements) == 0 {
		return nil, fmt.Errorf("parse intake scripts: at least one acknowledgement is required")
	}
	for _, state := range stateOrder {
		if len(state.fields()) == 0 {
			continue
		}
		script, ok := scripts.States[state]
		if !ok || strings.TrimSpace(script.Question) == "" {
			return nil, fmt.Errorf("parse intake scripts: state %s has no question", state)
		}
	}
	return &scripts, nil
}

var loadDefaultScripts = sync.OnceValues(func() (*Scripts, error) {
	return ParseScripts(defaultScriptsYAML)
})

// DefaultScripts returns the embedded script table.
func DefaultScripts() *Scripts {
	scripts, err := loadDefaultScripts()
	if err != nil {
		panic(err)
	}
	return scripts
}

// Render substitutes firm placeholders into a script line.
func (f FirmContext) Render(line string) string {
	replacer := strings.NewReplacer(
		"{businessName}", f.businessName(),
		"{agentName}", f.agentName(),
		"{defaultNextAvailable}", f.nextAvailable(),
		"{fee}", formatFee(f.ServiceFee),
	)
	return replacer.Replace(line)
}

func formatFee(fee float64) string {
	if fee == float64(int64(fee)) {
		return strconv.FormatInt(int64(fee), 10)
	}
	return strconv.FormatFloat(fee, 'f', 2, 64)
}
