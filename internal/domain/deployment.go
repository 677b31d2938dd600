package domain

// DeploymentRecord is the bookkeeping entry written after a contract deploy.
type DeploymentRecord struct {
	ContractAddress string `json:"contractAddress"`
	Network         string `json:"network"`
	DeployedAt      string `json:"deployedAt"` // RFC3339
}

// AddressBook maps wallet names to addresses.
type AddressBook map[string]string
