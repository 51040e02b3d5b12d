package request

// MembershipEventRequest reports a change in the clinic directory.
// Also the JSON body of the membership kafka topic.
type MembershipEventRequest struct {
	Kind     string `json:"kind" binding:"required,oneof=clinic_joined clinic_left role_changed user_deactivated user_reactivated"`
	UserID   uint   `json:"user_id" binding:"required"`
	ClinicID uint   `json:"clinic_id" binding:"required_if=Kind clinic_joined,required_if=Kind clinic_left"`
	OldRole  string `json:"old_role" binding:"required_if=Kind role_changed"`
	NewRole  string `json:"new_role" binding:"required_if=Kind role_changed"`
}
