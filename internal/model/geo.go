package model

// Country, DeptoState and CityMunicipality are static lookup tables seeded
// once by lexdeskctl seed-geo.
type Country struct {
	ID   uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	Code string `gorm:"size:8;not null;uniqueIndex" json:"code" yaml:"code"`
	Name string `gorm:"size:128;not null" json:"name" yaml:"name"`
}

func (Country) TableName() string { return "country" }

type DeptoState struct {
	ID        uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	CountryID uint   `gorm:"not null;index" json:"country_id" yaml:"country_id"`
	Name      string `gorm:"size:128;not null" json:"name" yaml:"name"`
}

func (DeptoState) TableName() string { return "depto_state" }

type CityMunicipality struct {
	ID      uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	StateID uint   `gorm:"not null;index" json:"state_id" yaml:"state_id"`
	Name    string `gorm:"size:128;not null" json:"name" yaml:"name"`
}

func (CityMunicipality) TableName() string { return "city_municipality" }
