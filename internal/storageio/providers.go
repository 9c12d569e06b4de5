package storageio

import (
	"fmt"
	"net/url"
	"strings"
)

// ProviderConfig holds the known defaults for one S3-compatible
// provider, used to fill in whatever an S3Config left unspecified.
type ProviderConfig struct {
	Name              string
	DefaultEndpoint   string
	RequiresRegion    bool
	RequiresPathStyle bool
	SupportedRegions  []string
	DefaultRegion     string
	EndpointTemplate  string // fmt.Sprintf template taking the region, used when DefaultEndpoint is region-specific
	ForcePathStyle    bool
}

// KnownProviders maps a provider name to its endpoint/region/path-style
// defaults, so an S3Config can say "provider: minio" instead of spelling
// out an endpoint.
var KnownProviders = map[string]ProviderConfig{
	"aws": {
		Name:            "AWS S3",
		DefaultEndpoint: "https://s3.amazonaws.com",
		RequiresRegion:  true,
		SupportedRegions: []string{
			"us-east-1", "us-east-2", "us-west-1", "us-west-2",
			"eu-west-1", "eu-west-2", "eu-west-3", "eu-central-1",
			"ap-southeast-1", "ap-southeast-2", "ap-northeast-1",
			"ap-northeast-2", "sa-east-1", "ca-central-1",
		},
		DefaultRegion: "us-east-1",
	},
	"minio": {
		Name:              "MinIO",
		DefaultEndpoint:   "http://localhost:9000",
		RequiresPathStyle: true,
		DefaultRegion:     "us-east-1",
	},
	"wasabi": {
		Name:            "Wasabi",
		DefaultEndpoint: "https://s3.wasabisys.com",
		RequiresRegion:  true,
		SupportedRegions: []string{
			"us-east-1", "us-east-2", "us-west-1", "eu-central-1",
			"ap-northeast-1", "ap-northeast-2",
		},
		DefaultRegion: "us-east-1",
	},
	"hetzner": {
		Name:              "Hetzner Storage Box",
		DefaultEndpoint:   "https://your-storagebox.your-server.de",
		RequiresPathStyle: true,
		DefaultRegion:     "nbg1", // Nuremberg
	},
	"digitalocean": {
		Name:            "DigitalOcean Spaces",
		DefaultEndpoint: "https://nyc3.digitaloceanspaces.com",
		RequiresRegion:  true,
		SupportedRegions: []string{
			"nyc3", "ams3", "sgp1", "sfo3", "fra1", "blr1",
		},
		DefaultRegion:    "nyc3",
		EndpointTemplate: "https://%s.digitaloceanspaces.com",
	},
	"backblaze": {
		Name:              "Backblaze B2",
		DefaultEndpoint:   "https://s3.us-west-000.backblazeb2.com",
		RequiresRegion:    true,
		RequiresPathStyle: true,
		SupportedRegions: []string{
			"us-west-000", "us-west-001", "us-west-002", "us-west-004",
			"eu-central-003",
		},
		DefaultRegion:    "us-west-000",
		EndpointTemplate: "https://s3.%s.backblazeb2.com",
	},
	"cloudflare": {
		Name:            "Cloudflare R2",
		DefaultEndpoint: "https://<account-id>.r2.cloudflarestorage.com",
		DefaultRegion:   "auto",
	},
	"linode": {
		Name:            "Linode Object Storage",
		DefaultEndpoint: "https://us-east-1.linodeobjects.com",
		RequiresRegion:  true,
		SupportedRegions: []string{
			"us-east-1", "eu-central-1", "ap-south-1",
		},
		DefaultRegion:    "us-east-1",
		EndpointTemplate: "https://%s.linodeobjects.com",
	},
	"scaleway": {
		Name:            "Scaleway Object Storage",
		DefaultEndpoint: "https://s3.fr-par.scw.cloud",
		RequiresRegion:  true,
		SupportedRegions: []string{
			"fr-par", "nl-ams", "pl-waw", "ap-sg",
		},
		DefaultRegion:    "fr-par",
		EndpointTemplate: "https://s3.%s.scw.cloud",
	},
	"oracle": {
		Name:            "Oracle Cloud Infrastructure",
		DefaultEndpoint: "https://objectstorage.us-ashburn-1.oraclecloud.com",
		RequiresRegion:  true,
		SupportedRegions: []string{
			"us-ashburn-1", "us-phoenix-1", "eu-frankfurt-1",
			"uk-london-1", "ap-sydney-1", "ap-tokyo-1",
		},
		DefaultRegion:    "us-ashburn-1",
		EndpointTemplate: "https://objectstorage.%s.oraclecloud.com",
	},
	"idrive": {
		Name:              "IDrive e2",
		DefaultEndpoint:   "https://s3.us-west-2.idrivee2-29.com",
		RequiresRegion:    true,
		RequiresPathStyle: true,
		SupportedRegions: []string{
			"us-west-2", "us-east-1", "eu-west-1", "ap-south-1",
		},
		DefaultRegion:    "us-west-2",
		EndpointTemplate: "https://s3.%s.idrivee2-29.com",
	},
}

// GetProviderConfig returns the configuration for a given provider name.
func GetProviderConfig(provider string) (ProviderConfig, error) {
	if provider == "" {
		return ProviderConfig{}, fmt.Errorf("provider name is required")
	}

	config, ok := KnownProviders[strings.ToLower(provider)]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("unknown provider: %s (supported: %s)",
			provider, strings.Join(getProviderNames(), ", "))
	}
	return config, nil
}

// ValidateProviderConfig resolves the endpoint and region to use for
// provider, falling back to its known defaults wherever endpoint/region
// are left blank.
func ValidateProviderConfig(endpoint, provider, region string) (string, string, error) {
	config, err := GetProviderConfig(provider)
	if err != nil {
		return "", "", err
	}

	if endpoint == "" {
		if config.EndpointTemplate != "" && region != "" {
			endpoint = fmt.Sprintf(config.EndpointTemplate, region)
		} else {
			endpoint = config.DefaultEndpoint
		}
	}
	endpoint = normalizeEndpoint(endpoint)

	if region == "" && config.DefaultRegion != "" {
		region = config.DefaultRegion
	}

	return endpoint, region, nil
}

// normalizeEndpoint adds a scheme if missing and trims a trailing slash.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return strings.TrimSuffix(endpoint, "/")
}

// ValidateEndpoint checks that endpoint is a well-formed http(s) URL.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must use http:// or https:// scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint must include a hostname")
	}
	return nil
}

func getProviderNames() []string {
	names := make([]string, 0, len(KnownProviders))
	for name := range KnownProviders {
		names = append(names, name)
	}
	return names
}

// IsProviderSupported reports whether provider names a known provider.
func IsProviderSupported(provider string) bool {
	_, ok := KnownProviders[strings.ToLower(provider)]
	return ok
}

// GetProviderDefaultEndpoint returns the default endpoint for a provider.
func GetProviderDefaultEndpoint(provider string) (string, error) {
	config, err := GetProviderConfig(provider)
	if err != nil {
		return "", err
	}
	return config.DefaultEndpoint, nil
}

// RequiresPathStyleAddressing reports whether provider requires
// path-style bucket addressing instead of virtual-hosted style.
func RequiresPathStyleAddressing(provider string) bool {
	config, err := GetProviderConfig(provider)
	if err != nil {
		return false
	}
	return config.RequiresPathStyle || config.ForcePathStyle
}
