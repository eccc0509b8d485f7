package models

// ServiceDefinition describes one payable government service.
type ServiceDefinition struct {
	Key            string   `yaml:"key" json:"key"`
	Name           string   `yaml:"name" json:"name"`
	AmountKES      int      `yaml:"amount" json:"amount"`
	Code           string   `yaml:"code" json:"code"`
	Description    string   `yaml:"description" json:"description"`
	ProcessingTime string   `yaml:"processing_time" json:"processing_time"`
	Requirements   []string `yaml:"requirements" json:"requirements"`
}
