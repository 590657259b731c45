package mail

import (
	"context"
	"encoding/json"
	"fmt"
	netmail "net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	errs "linggo_sync/internal/errors"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type Config struct {
	From            string
	WelcomeTemplate string
	SenderName      string
	SenderAddress   string
	SenderCity      string
	// ContactList, when set, lets recipients unsubscribe through SES list management.
	ContactList string
}

type Welcome struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type welcomeData struct {
	Name          string `json:"name"`
	UserEmail     string `json:"user_email"`
	UserName      string `json:"user_name"`
	SenderName    string `json:"Sender_Name"`
	SenderAddress string `json:"Sender_Address"`
	SenderCity    string `json:"Sender_City"`
}

type Usecase struct {
	ses SESAPI
	cfg Config
	log *zap.SugaredLogger
}

func NewUsecase(client SESAPI, cfg Config, log *zap.SugaredLogger) *Usecase {
	return &Usecase{
		ses: client,
		cfg: cfg,
		log: log,
	}
}

// SendWelcome sends the templated welcome mail and returns the provider message id.
func (u *Usecase) SendWelcome(ctx context.Context, w Welcome) (string, error) {
	if u.cfg.WelcomeTemplate == "" {
		return "", fmt.Errorf("%w: welcome template is not configured", errs.ErrInternal)
	}
	addr, err := netmail.ParseAddress(w.Email)
	if err != nil {
		return "", fmt.Errorf("%w: invalid email %q", errs.ErrValidationFailed, w.Email)
	}
	if w.Name == "" {
		w.Name = w.Username
	}

	data, err := json.Marshal(welcomeData{
		Name:          w.Name,
		UserEmail:     addr.Address,
		UserName:      w.Username,
		SenderName:    u.cfg.SenderName,
		SenderAddress: u.cfg.SenderAddress,
		SenderCity:    u.cfg.SenderCity,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(u.cfg.From),
		Destination:      &types.Destination{ToAddresses: []string{addr.Address}},
		Content: &types.EmailContent{
			Template: &types.Template{
				TemplateName: aws.String(u.cfg.WelcomeTemplate),
				TemplateData: aws.String(string(data)),
			},
		},
	}
	if u.cfg.ContactList != "" {
		input.ListManagementOptions = &types.ListManagementOptions{ContactListName: aws.String(u.cfg.ContactList)}
	}

	out, err := u.ses.SendEmail(ctx, input)
	if err != nil {
		u.log.Errorf("SendWelcome: ses: %v", err)
		return "", fmt.Errorf("%w: welcome mail was not sent", errs.ErrUpstream)
	}
	u.log.Infof("SendWelcome: sent to %s", addr.Address)
	return aws.ToString(out.MessageId), nil
}
