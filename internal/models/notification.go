package models

// TrialExpiredNotice is the message the trial sweeper publishes for each
// account it blocks, consumed by the notification sender.
type TrialExpiredNotice struct {
	TrainerUID   string `json:"trainer_uid"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	TrialEndDate string `json:"trial_end_date"`
}
