package signature

// yamlSignature is one entry of a signatures file.
type yamlSignature struct {
	Name             string   `yaml:"name"`
	ID               string   `yaml:"id"`
	Pattern          string   `yaml:"pattern"`
	Notation         string   `yaml:"notation,omitempty"`
	Mask             string   `yaml:"mask,omitempty"`
	Section          string   `yaml:"section,omitempty"`
	Description      string   `yaml:"description,omitempty"`
	Examples         []string `yaml:"examples,omitempty"`
	NegativeExamples []string `yaml:"negative_examples,omitempty"`
	References       []string `yaml:"references,omitempty"`
	Categories       []string `yaml:"categories,omitempty"`
}

// yamlSignaturesFile is the top level of a signatures file.
type yamlSignaturesFile struct {
	Signatures []yamlSignature `yaml:"signatures"`
}
