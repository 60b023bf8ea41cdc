package domain

// Product is a read-only catalog entry shown on the website.
type Product struct {
	ID          uint     `gorm:"primaryKey" json:"id" yaml:"id"`
	Name        string   `gorm:"size:200;not null" json:"name" yaml:"name"`
	Description string   `gorm:"type:text" json:"description" yaml:"description"`
	Features    []string `gorm:"serializer:json;type:text" json:"features" yaml:"features"`
	UsageText   string   `gorm:"type:text" json:"usage_text" yaml:"usage_text"`
	ImagePath   string   `gorm:"size:500" json:"image_path" yaml:"image_path"`
	Badge       *string  `gorm:"size:100" json:"badge,omitempty" yaml:"badge,omitempty"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}
