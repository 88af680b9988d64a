package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/DataDog/viper"
	"github.com/go-ini/ini"
	"gopkg.in/yaml.v3"
)

// document is the raw, format-independent content of a configuration file.
type document struct {
	scalars map[string]string
	lists   map[string][]string
	present map[string]bool
	tests   map[int]*testDoc
}

type testDoc struct {
	Description  string   `yaml:"description" json:"description"`
	InputQueue   string   `yaml:"input_queue" json:"input_queue,omitempty"`
	OutputQueues []string `yaml:"output_queues" json:"output_queues"`
	EmptyQueues  []string `yaml:"empty_queues" json:"empty_queues"`
	Formats      []string `yaml:"formats" json:"formats"`
	DBPre        string   `yaml:"db_pre" json:"db_pre,omitempty"`
	DBPost       string   `yaml:"db_post" json:"db_post,omitempty"`
}

var listKeys = map[string]bool{
	KeyCleanupQueues:     true,
	KeyIgnoreXMLElements: true,
}

var testSection = regexp.MustCompile(`^test\s+([0-9]+)$`)

func newDocument() *document {
	return &document{
		scalars: map[string]string{},
		lists:   map[string][]string{},
		present: map[string]bool{},
		tests:   map[int]*testDoc{},
	}
}

func (d *document) scalar(key string) string {
	return d.scalars[key]
}

// set stores a global value given as text. Blank values count as absent.
func (d *document) set(key, value string) {
	if listKeys[key] {
		d.lists[key] = splitList(value)
		d.present[key] = len(d.lists[key]) > 0
		return
	}
	value = strings.TrimSpace(value)
	if key == KeyTraceLevel || key == KeyDBDriver {
		value = strings.ToLower(value)
	}
	d.scalars[key] = value
	d.present[key] = d.scalars[key] != ""
}

// applyEnv fills every global key absent from the file from its
// MSGHARNESS_ environment variable, as bound in env.
func (d *document) applyEnv(env *viper.Viper) {
	for _, key := range GlobalKeys {
		if d.present[key] {
			continue
		}
		if v := env.GetString(key); v != "" {
			d.set(key, v)
		}
	}
}

// newEnv binds every global key to its environment override.
func newEnv() (*viper.Viper, error) {
	env := viper.New()
	env.SetEnvPrefix(strings.TrimSuffix(EnvPrefix, "_"))
	for _, key := range GlobalKeys {
		if err := env.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", EnvName(key), err)
		}
	}
	return env, nil
}

func (d *document) applyDefaults() {
	defaults := map[string]string{
		KeyTraceLevel:   DefaultTraceLevel,
		KeyTimeout:      strconv.Itoa(int(DefaultTimeout.Seconds())),
		KeyDBDriver:     DefaultDBDriver,
		KeyTransportURL: DefaultTransportURL,
	}
	for key, v := range defaults {
		if d.scalars[key] == "" {
			d.scalars[key] = v
		}
	}
	for key := range listKeys {
		if d.lists[key] == nil {
			d.lists[key] = []string{}
		}
	}
	for _, t := range d.tests {
		t.normalize()
	}
}

func (t *testDoc) normalize() {
	t.Description = strings.TrimSpace(t.Description)
	t.InputQueue = strings.TrimSpace(t.InputQueue)
	t.DBPre = strings.TrimSpace(t.DBPre)
	t.DBPost = strings.TrimSpace(t.DBPost)
	t.OutputQueues = trimAll(t.OutputQueues)
	t.EmptyQueues = trimAll(t.EmptyQueues)
	t.Formats = trimAll(t.Formats)
}

func parseINI(path string) (*document, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         true,
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return nil, &InvalidError{Path: path, Reason: err.Error()}
	}

	doc := newDocument()
	for _, sec := range f.Sections() {
		if strings.EqualFold(sec.Name(), ini.DefaultSection) {
			for _, k := range sec.Keys() {
				if !slices.Contains(GlobalKeys, k.Name()) {
					return nil, &InvalidError{Path: path, Reason: fmt.Sprintf("unknown key %q", k.Name())}
				}
				doc.set(k.Name(), k.String())
			}
			continue
		}

		m := testSection.FindStringSubmatch(strings.TrimSpace(sec.Name()))
		if m == nil {
			return nil, &InvalidError{Path: path, Reason: fmt.Sprintf("unknown section [%s]", sec.Name())}
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, &InvalidError{Path: path, Reason: fmt.Sprintf("bad test index in [%s]", sec.Name())}
		}
		if _, dup := doc.tests[idx]; dup {
			return nil, &InvalidError{Path: path, Reason: fmt.Sprintf("test %d defined twice", idx)}
		}

		t := &testDoc{}
		for _, k := range sec.Keys() {
			v := k.String()
			switch k.Name() {
			case "description":
				t.Description = v
			case "input_queue":
				t.InputQueue = v
			case "output_queues":
				t.OutputQueues = splitList(v)
			case "empty_queues":
				t.EmptyQueues = splitList(v)
			case "formats":
				t.Formats = splitPositional(v)
			case "db_pre":
				t.DBPre = v
			case "db_post":
				t.DBPost = v
			default:
				return nil, &InvalidError{Path: path, Reason: fmt.Sprintf("unknown key %q in [%s]", k.Name(), sec.Name())}
			}
		}
		doc.tests[idx] = t
	}
	return doc, nil
}

// yamlFile mirrors the YAML layout. Decoding is strict so misspelled keys
// are rejected.
type yamlFile struct {
	ComponentName     string           `yaml:"component_name"`
	QueueManager      string           `yaml:"queue_manager"`
	Broker            string           `yaml:"broker"`
	InputQueue        string           `yaml:"input_queue"`
	ExecutionGroup    string           `yaml:"execution_group"`
	TraceLevel        string           `yaml:"trace_level"`
	Timeout           string           `yaml:"timeout"`
	CleanupQueues     []string         `yaml:"cleanup_queues"`
	IgnoreXMLElements []string         `yaml:"ignore_xml_elements"`
	DBDriver          string           `yaml:"db_driver"`
	DBPreDSN          string           `yaml:"db_pre_dsn"`
	DBPostDSN         string           `yaml:"db_post_dsn"`
	TransportURL      string           `yaml:"transport_url"`
	UsrStartMarker    string           `yaml:"usr_start_marker"`
	UsrEndMarker      string           `yaml:"usr_end_marker"`
	Tests             map[int]*testDoc `yaml:"tests"`
}

func parseYAML(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var file yamlFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, &InvalidError{Path: path, Reason: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	doc := newDocument()
	for key, v := range map[string]string{
		KeyComponentName:  file.ComponentName,
		KeyQueueManager:   file.QueueManager,
		KeyBroker:         file.Broker,
		KeyInputQueue:     file.InputQueue,
		KeyExecutionGroup: file.ExecutionGroup,
		KeyTraceLevel:     file.TraceLevel,
		KeyTimeout:        file.Timeout,
		KeyDBDriver:       file.DBDriver,
		KeyDBPreDSN:       file.DBPreDSN,
		KeyDBPostDSN:      file.DBPostDSN,
		KeyTransportURL:   file.TransportURL,
		KeyUsrStartMarker: file.UsrStartMarker,
		KeyUsrEndMarker:   file.UsrEndMarker,
	} {
		doc.set(key, v)
	}
	doc.lists[KeyCleanupQueues] = trimAll(file.CleanupQueues)
	doc.present[KeyCleanupQueues] = len(file.CleanupQueues) > 0
	doc.lists[KeyIgnoreXMLElements] = trimAll(file.IgnoreXMLElements)
	doc.present[KeyIgnoreXMLElements] = len(file.IgnoreXMLElements) > 0

	for idx, t := range file.Tests {
		if t == nil {
			t = &testDoc{}
		}
		doc.tests[idx] = t
	}
	return doc, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitPositional splits a list whose entries are matched by position, so
// blank entries are kept. An all-blank value has no entries.
func splitPositional(s string) []string {
	if strings.TrimSpace(strings.ReplaceAll(s, ",", "")) == "" {
		return []string{}
	}
	return trimAll(strings.Split(s, ","))
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
