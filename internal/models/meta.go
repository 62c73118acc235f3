package models

// MissingKeyExamples holds bounded example lists for diagnostics.
type MissingKeyExamples struct {
	MissingMapping []string `json:"missing_mapping"`
	MissingPrice   []string `json:"missing_price"`
}

// RunMeta is the structured summary persisted next to seed/state artifacts.
type RunMeta struct {
	RunID                 string             `json:"run_id"`
	RunDateUTC            string             `json:"run_date_utc"`
	Provider              string             `json:"provider"`
	PriceType             string             `json:"price_type"`
	Market                string             `json:"market"`
	StateDays             int                `json:"state_days"`
	NumCollectionKeys     int                `json:"num_collection_keys"`
	NumMappedKeys         int                `json:"num_mapped_keys"`
	NumPricedKeys         int                `json:"num_priced_keys"`
	SeedRows              int                `json:"seed_rows"`
	StateRows             int                `json:"state_rows"`
	MissingPriceKeysCount int                `json:"missing_price_keys_count"`
	MissingMappingCount   int                `json:"missing_mapping_count"`
	MissingKeyExamples    MissingKeyExamples `json:"missing_key_examples"`
}
