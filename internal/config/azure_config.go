package config

type AzureConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetRegistrationID() string
	GetGraphScopes() []string
}

type Azure struct{}

var _ AzureConfig = Azure{}

// GetIssuerURL returns the OIDC issuer, e.g.
// "https://login.microsoftonline.com/<tenant>/v2.0"
func (Azure) GetIssuerURL() string {
	return GetEnv("AZURE_ISSUER_URL", "")
}

func (Azure) GetClientID() string {
	return GetEnv("AZURE_CLIENT_ID", "")
}

func (Azure) GetClientSecret() string {
	return GetEnv("AZURE_CLIENT_SECRET", "")
}

// GetRegistrationID identifies the single configured provider in the
// callback path /login/oauth2/code/{registrationId}.
func (Azure) GetRegistrationID() string {
	return GetEnv("AZURE_REGISTRATION_ID", "azure")
}

// GetGraphScopes returns the provider-specific scopes requested in
// addition to openid.
func (Azure) GetGraphScopes() []string {
	return splitList(GetEnv("AZURE_GRAPH_SCOPES",
		"https://graph.microsoft.com/user.read,https://graph.microsoft.com/groupmember.read.all"))
}
