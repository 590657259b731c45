package token

// UserToken holds the push tokens and notification preferences of a user.
type UserToken struct {
	UID                     string   `json:"uid" bson:"uid"`
	FcmTokens               []string `json:"fcmTokens" bson:"fcmTokens"`
	ReviewNotificationsOn   bool     `json:"reviewNotificationsOn" bson:"reviewNotificationsOn"`
	ReviewNotificationsTime string   `json:"reviewNotificationsTime,omitempty" bson:"reviewNotificationsTime,omitempty"`
	TimeZone                string   `json:"timeZone,omitempty" bson:"timeZone,omitempty"`
	LastLoginTime           int64    `json:"lastLoginTime,omitempty" bson:"lastLoginTime,omitempty"`
}

// Preferences are the optional settings sent along with a token. Nil fields
// are left untouched.
type Preferences struct {
	ReviewNotificationsOn   *bool   `json:"reviewNotificationsOn,omitempty"`
	ReviewNotificationsTime *string `json:"reviewNotificationsTime,omitempty"`
	TimeZone                *string `json:"timeZone,omitempty"`
	LastLoginTime           *int64  `json:"lastLoginTime,omitempty"`
}

type Registration struct {
	FcmToken string `json:"fcmToken"`
	Preferences
}

// Recipient is a user selected for a notification together with its tokens.
type Recipient struct {
	UID    string   `json:"uid"`
	Tokens []string `json:"fcmTokens"`
}
