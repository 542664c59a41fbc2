package kb

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/yungbote/neurobridge-kgbuild/internal/batch"
	"github.com/yungbote/neurobridge-kgbuild/internal/checkpoint"
	"github.com/yungbote/neurobridge-kgbuild/internal/enrich"
	"github.com/yungbote/neurobridge-kgbuild/internal/parse"
)

const (
	StageDescribe = "describe"
	StageExtract  = "extract"
)

// DescribeFields are the fields a non-empty describe answer must carry.
var DescribeFields = []string{"Name", "Synonym", "Description", "Relational corpus"}

const describeFormat = `{"Name": "...", "Synonym": ["..."], "Description": "...", "Relational corpus": {"Brain regions": "...", "Diseases": "...", "Cognition": "...", "Emotions": "...", "Behaviors": "...", "Drugs": "..."}}`

const DefaultDescribeTemplate = `
Your task is to give a detailed description associated with the specified brain region about other brain regions, diseases, cognition, emotions, drugs and behaviors.
The specified brain region name is as follows: '''{{.Key}}'''.
Please answer in this json format: {{.Format}}
If you can't answer, you must only output empty json data.
`

const DefaultExtractTemplate = `
Your task is to extract brain science entities and relationships from the text delimited with triple quotes as accurately as possible and organize them into relational triples.
The text is as follows: '''{{.Context}}'''.
The relational triplet format is as follows: [["entity1", "relationship", "entity2"], ...]
If you can't answer, you must only output []
`

// DescribeData is what the describe template sees.
type DescribeData struct {
	Key    string
	Format string
}

// ExtractData is what the extract template sees. Context is the key's
// describe result as compact JSON.
type ExtractData struct {
	Key     string
	Context string
}

// LoadTemplate parses the template file at path, or fallback when path is empty.
func LoadTemplate(name, path, fallback string) (*template.Template, error) {
	text := fallback
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("kb: read %s template: %w", name, err)
		}
		text = string(b)
	}
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("kb: parse %s template: %w", name, err)
	}
	return t, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("kb: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// DescribeStage asks for a descriptive object per key.
func DescribeStage(t *template.Template, opts enrich.Options) batch.Stage {
	return batch.Stage{
		Name: StageDescribe,
		Prompt: func(key string) (string, error) {
			return render(t, DescribeData{Key: key, Format: describeFormat})
		},
		Parser:  parse.Object(DescribeFields...),
		Options: opts,
	}
}

// ExtractStage asks for relation triples per key, using the key's describe
// result as context. Its universe is KeysOf(described).
func ExtractStage(t *template.Template, described *checkpoint.Document, opts enrich.Options) batch.Stage {
	return batch.Stage{
		Name: StageExtract,
		Prompt: func(key string) (string, error) {
			raw, ok := described.Get(key)
			if !ok {
				return "", fmt.Errorf("kb: no describe result for %q", key)
			}
			return render(t, ExtractData{Key: key, Context: string(raw)})
		},
		Parser:  parse.TripleList(),
		Options: opts,
	}
}
