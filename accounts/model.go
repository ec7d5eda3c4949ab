package accounts

import "time"

const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// Account is a registered user. Password holds the bcrypt hash and is never
// serialized.
type Account struct {
	ID         string    `json:"_id" bson:"_id"`
	Email      string    `json:"email" bson:"email"`
	Password   string    `json:"-" bson:"password"`
	Role       string    `json:"role" bson:"role"`
	Name       string    `json:"name" bson:"name"`
	JoinedDate time.Time `json:"joinedDate" bson:"joinedDate"`

	// patient
	BloodGroup       string `json:"bloodGroup" bson:"bloodGroup"`
	Allergies        string `json:"allergies" bson:"allergies"`
	EmergencyContact string `json:"emergencyContact" bson:"emergencyContact"`

	// doctor
	Specialization string `json:"specialization" bson:"specialization"`
	Affiliation    string `json:"affiliation" bson:"affiliation"`
	LicenseNumber  string `json:"licenseNumber" bson:"licenseNumber"`
}

// Patch carries a partial profile update; nil fields are left untouched.
type Patch struct {
	Name             *string `json:"name"`
	BloodGroup       *string `json:"bloodGroup"`
	Allergies        *string `json:"allergies"`
	EmergencyContact *string `json:"emergencyContact"`
	Specialization   *string `json:"specialization"`
	Affiliation      *string `json:"affiliation"`
	LicenseNumber    *string `json:"licenseNumber"`
}

// Apply overwrites only the supplied fields and reports whether any were.
func (a *Account) Apply(p Patch) bool {
	changed := false
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
			changed = true
		}
	}
	set(&a.Name, p.Name)
	set(&a.BloodGroup, p.BloodGroup)
	set(&a.Allergies, p.Allergies)
	set(&a.EmergencyContact, p.EmergencyContact)
	set(&a.Specialization, p.Specialization)
	set(&a.Affiliation, p.Affiliation)
	set(&a.LicenseNumber, p.LicenseNumber)
	return changed
}

// Signup is the registration payload.
type Signup struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	BloodGroup       string `json:"bloodGroup"`
	Allergies        string `json:"allergies"`
	EmergencyContact string `json:"emergencyContact"`
	Specialization   string `json:"specialization"`
	Affiliation      string `json:"affiliation"`
	LicenseNumber    string `json:"licenseNumber"`
}
