package config

type NomConfig interface {
	GetNomBaseURL() string
	GetNomToken() string
}

type Nom struct{}

var _ NomConfig = Nom{}

func (Nom) GetNomBaseURL() string {
	return GetEnv("NOM_BASE_URL", "")
}

func (Nom) GetNomToken() string {
	return GetEnv("NOM_TOKEN", "")
}
