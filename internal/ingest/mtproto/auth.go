package mtproto

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

const minPhoneLength = 10

// ErrSignupNotSupported indicates that signup is not supported.
var ErrSignupNotSupported = errors.New("signup not supported")

func (c *Client) authFlow() auth.Flow {
	return auth.NewFlow(c, auth.SendCodeOptions{})
}

func (c *Client) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Print("Enter code: ")

	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read auth code: %w", err)
	}

	return strings.TrimSpace(code), nil
}

func (c *Client) Phone(_ context.Context) (string, error) {
	phone := c.cfg.Phone

	if phone == "" {
		fmt.Print("Enter phone: ")

		var err error

		phone, err = bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read phone number: %w", err)
		}
	}

	phone = sanitizePhone(phone)
	c.logger.Info().Str("phone", maskPhone(phone)).Msg("Using phone number")

	if len(phone) < minPhoneLength {
		c.logger.Warn().Int("length", len(phone)).Msg("Phone number seems too short, it might be invalid. Ensure it includes country code (e.g. +1...)")
	}

	return phone, nil
}

func (c *Client) Password(_ context.Context) (string, error) {
	if c.cfg.Password2FA != "" {
		return strings.TrimSpace(c.cfg.Password2FA), nil
	}

	fmt.Print("Enter 2FA password: ")

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read 2FA password: %w", err)
	}

	return strings.TrimSpace(password), nil
}

func (c *Client) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (c *Client) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, ErrSignupNotSupported
}
