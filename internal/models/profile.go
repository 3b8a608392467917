package models

const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"

	MaxAge = 150
)

// Profile is the extended, user-editable part of a User.
type Profile struct {
	UserID    uint   `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Signature string `gorm:"size:50" json:"signature"`
	Age       int    `gorm:"not null;default:0" json:"age"`
	Gender    string `gorm:"size:1;not null" json:"gender"`
	Hometown  string `gorm:"size:15" json:"hometown"`
	Hobby     string `gorm:"size:15" json:"hobby"`
	Bio       string `gorm:"size:420" json:"bio"`
	Avatar    string `gorm:"size:32" json:"avatar"` // emoji 头像
}

// DefaultProfile returns the profile every new account starts with.
func DefaultProfile(avatar string) Profile {
	return Profile{
		Signature: "I love grumblr!",
		Gender:    GenderOther,
		Hometown:  "Grumbland",
		Hobby:     "Grumbling!",
		Bio:       "A grumblr user.",
		Avatar:    avatar,
	}
}

// GenderLabel is the display form of Gender
func (p *Profile) GenderLabel() string {
	switch p.Gender {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	}
	return "Other"
}
