package content

// Defaults returns the placeholder content shown before anything is saved.
func Defaults() *SiteContent {
	return &SiteContent{
		PersonalInfo: &PersonalInfo{
			Name:  "Your Name",
			Title: "Software Engineer",
			Email: "hello@example.com",
		},
		SocialLinks: &SocialLinks{
			Links: []SocialLink{
				{Label: "GitHub", URL: "https://github.com", IconName: "Github"},
				{Label: "LinkedIn", URL: "https://www.linkedin.com", IconName: "Linkedin"},
			},
		},
		Navigation: &Navigation{
			Items: []NavItem{
				{ID: "hero", Label: "Home", Shortcut: "1"},
				{ID: "about", Label: "About", Shortcut: "2"},
				{ID: "skills", Label: "Skills", Shortcut: "3"},
				{ID: "projects", Label: "Projects", Shortcut: "4"},
				{ID: "experience", Label: "Experience", Shortcut: "5"},
				{ID: "certifications", Label: "Certifications", Shortcut: "6"},
				{ID: "contact", Label: "Contact", Shortcut: "7"},
			},
		},
		Hero: &Hero{
			Greeting:     "Hi, I'm",
			Title:        "Your Name",
			Subtitle:     "I build things for the web.",
			PrimaryCTA:   &CallToAction{Text: "View my work", Href: "#projects"},
			SecondaryCTA: &CallToAction{Text: "Get in touch", Href: "#contact"},
		},
		About: &About{
			Title:   "About Me",
			Content: "Tell visitors who you are and what you care about.",
		},
		Skills: &Skills{
			Title: "Skills",
		},
		Projects: &Projects{
			Title: "Projects",
		},
		Experience: &Experience{
			Title: "Experience",
		},
		Certifications: &Certifications{
			Title: "Certifications",
		},
		Contact: &Contact{
			Title:       "Get In Touch",
			Subtitle:    "Have a project in mind? Let's talk.",
			Description: "I'm always open to discussing new projects and opportunities.",
			BulletPoints: []BulletPoint{
				{Text: "Freelance projects"},
				{Text: "Full-time opportunities"},
			},
			EmailCard: EmailCard{Title: "Let's work together"},
			Form: ContactForm{
				Title: "Send a message",
				Fields: ContactFormFields{
					FirstName: FieldCopy{Label: "First Name", Placeholder: "John"},
					LastName:  FieldCopy{Label: "Last Name", Placeholder: "Doe"},
				},
				SubmitButton: ButtonCopy{Text: "Send Message"},
			},
		},
	}
}
