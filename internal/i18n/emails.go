package i18n

import (
	"html"
	"strconv"
	"strings"
)

type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

type emailStrings struct {
	VerificationSubject string
	VerificationText    string
	VerificationHTML    string

	EmailChangeSubject string
	EmailChangeText    string
	EmailChangeHTML    string

	PasswordResetSubject string
	PasswordResetText    string
	PasswordResetHTML    string

	ExternalSignInSubject string
	ExternalSignInText    string
	ExternalSignInHTML    string
}

var emailTranslations = map[string]emailStrings{
	"en": {
		VerificationSubject: "Verify your email",
		VerificationText:    "Hi {username},\n\nConfirm your email address to finish signing up: {link}\n\nIf you did not create an account, you can ignore this email.",
		VerificationHTML: "<p>Hi {username},</p>" +
			"<p>Confirm your email address to finish signing up.</p>" +
			"<p><a href=\"{link}\">Verify email</a></p>" +
			"<p>If you did not create an account, you can ignore this email.</p>",

		EmailChangeSubject: "Confirm your new email",
		EmailChangeText:    "Hi {username},\n\nConfirm this address as the new email of your account: {link}\n\nUntil you confirm, your current email stays active.",
		EmailChangeHTML: "<p>Hi {username},</p>" +
			"<p>Confirm this address as the new email of your account.</p>" +
			"<p><a href=\"{link}\">Confirm email</a></p>" +
			"<p>Until you confirm, your current email stays active.</p>",

		PasswordResetSubject: "Reset your password",
		PasswordResetText:    "Hi {username},\n\nReset your password: {link}\nThe link expires in {hours} hour(s).\nIf you did not request this, ignore this email.",
		PasswordResetHTML: "<p>Hi {username},</p>" +
			"<p>Click the button to reset your password.</p>" +
			"<p><a href=\"{link}\">Reset password</a></p>" +
			"<p>The link expires in {hours} hour(s).</p>" +
			"<p>If you did not request this, ignore this email.</p>",

		ExternalSignInSubject: "Account uses external sign-in",
		ExternalSignInText:    "This account uses an external sign-in method. Please sign in using that method to access your account.",
		ExternalSignInHTML: "<p>This account uses an external sign-in method.</p>" +
			"<p>Please sign in using that method to access your account.</p>",
	},
	"de": {
		VerificationSubject: "E-Mail verifizieren",
		VerificationText:    "Hallo {username},\n\nbestätigen Sie Ihre E-Mail-Adresse, um die Registrierung abzuschließen: {link}\n\nWenn Sie kein Konto erstellt haben, können Sie diese E-Mail ignorieren.",
		VerificationHTML: "<p>Hallo {username},</p>" +
			"<p>bestätigen Sie Ihre E-Mail-Adresse, um die Registrierung abzuschließen.</p>" +
			"<p><a href=\"{link}\">E-Mail verifizieren</a></p>" +
			"<p>Wenn Sie kein Konto erstellt haben, können Sie diese E-Mail ignorieren.</p>",

		EmailChangeSubject: "Neue E-Mail bestätigen",
		EmailChangeText:    "Hallo {username},\n\nbestätigen Sie diese Adresse als neue E-Mail Ihres Kontos: {link}\n\nBis dahin bleibt Ihre bisherige E-Mail aktiv.",
		EmailChangeHTML: "<p>Hallo {username},</p>" +
			"<p>bestätigen Sie diese Adresse als neue E-Mail Ihres Kontos.</p>" +
			"<p><a href=\"{link}\">E-Mail bestätigen</a></p>" +
			"<p>Bis dahin bleibt Ihre bisherige E-Mail aktiv.</p>",

		PasswordResetSubject: "Passwort zurücksetzen",
		PasswordResetText:    "Hallo {username},\n\nsetzen Sie Ihr Passwort zurück: {link}\nDer Link ist {hours} Stunde(n) gültig.\nWenn Sie dies nicht angefordert haben, ignorieren Sie diese E-Mail.",
		PasswordResetHTML: "<p>Hallo {username},</p>" +
			"<p>Klicken Sie auf den Button, um Ihr Passwort zurückzusetzen.</p>" +
			"<p><a href=\"{link}\">Passwort zurücksetzen</a></p>" +
			"<p>Der Link ist {hours} Stunde(n) gültig.</p>" +
			"<p>Wenn Sie dies nicht angefordert haben, ignorieren Sie diese E-Mail.</p>",

		ExternalSignInSubject: "Konto nutzt externe Anmeldung",
		ExternalSignInText:    "Dieses Konto verwendet eine externe Anmeldemethode. Bitte melden Sie sich mit dieser Methode an, um auf Ihr Konto zuzugreifen.",
		ExternalSignInHTML: "<p>Dieses Konto verwendet eine externe Anmeldemethode.</p>" +
			"<p>Bitte melden Sie sich mit dieser Methode an, um auf Ihr Konto zuzugreifen.</p>",
	},
}

func emailStringsForLocale(locale string) emailStrings {
	key := NormalizeLocale(locale)
	if val, ok := emailTranslations[key]; ok {
		return val
	}
	return emailTranslations[DefaultLocale]
}

func renderTemplate(tmpl string, values map[string]string) string {
	if tmpl == "" || len(values) == 0 {
		return tmpl
	}

	replacements := make([]string, 0, len(values)*2)
	for key, value := range values {
		replacements = append(replacements, "{"+key+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(tmpl)
}

// render fills both bodies. Values are escaped for the HTML body only.
func render(subject, text, htmlTmpl string, values map[string]string) EmailContent {
	escaped := make(map[string]string, len(values))
	for key, value := range values {
		escaped[key] = html.EscapeString(value)
	}
	return EmailContent{
		Subject: subject,
		Text:    renderTemplate(text, values),
		HTML:    renderTemplate(htmlTmpl, escaped),
	}
}

func VerificationEmail(locale, username, link string) EmailContent {
	t := emailStringsForLocale(locale)
	return render(t.VerificationSubject, t.VerificationText, t.VerificationHTML, map[string]string{
		"username": username,
		"link":     link,
	})
}

func EmailChangeEmail(locale, username, link string) EmailContent {
	t := emailStringsForLocale(locale)
	return render(t.EmailChangeSubject, t.EmailChangeText, t.EmailChangeHTML, map[string]string{
		"username": username,
		"link":     link,
	})
}

func PasswordResetEmail(locale, username, link string, hours int) EmailContent {
	t := emailStringsForLocale(locale)
	return render(t.PasswordResetSubject, t.PasswordResetText, t.PasswordResetHTML, map[string]string{
		"username": username,
		"link":     link,
		"hours":    strconv.Itoa(hours),
	})
}

func ExternalSignInEmail(locale string) EmailContent {
	t := emailStringsForLocale(locale)
	return EmailContent{
		Subject: t.ExternalSignInSubject,
		Text:    t.ExternalSignInText,
		HTML:    t.ExternalSignInHTML,
	}
}
