package content

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SiteContent is the aggregate of all sections. A nil field means the section
// is absent, so a partially loaded site is a SiteContent with some nil fields.
type SiteContent struct {
	PersonalInfo   *PersonalInfo   `json:"personalInfo,omitempty" yaml:"personalInfo,omitempty"`
	SocialLinks    *SocialLinks    `json:"socialLinks,omitempty" yaml:"socialLinks,omitempty"`
	Navigation     *Navigation     `json:"navigation,omitempty" yaml:"navigation,omitempty"`
	Hero           *Hero           `json:"hero,omitempty" yaml:"hero,omitempty"`
	About          *About          `json:"about,omitempty" yaml:"about,omitempty"`
	Skills         *Skills         `json:"skills,omitempty" yaml:"skills,omitempty"`
	Projects       *Projects       `json:"projects,omitempty" yaml:"projects,omitempty"`
	Experience     *Experience     `json:"experience,omitempty" yaml:"experience,omitempty"`
	Certifications *Certifications `json:"certifications,omitempty" yaml:"certifications,omitempty"`
	Contact        *Contact        `json:"contact,omitempty" yaml:"contact,omitempty"`
}

// Get returns the section stored under name, or nil.
func (c *SiteContent) Get(name SectionName) Section {
	if c == nil {
		return nil
	}
	switch name {
	case SectionPersonalInfo:
		if c.PersonalInfo != nil {
			return c.PersonalInfo
		}
	case SectionSocialLinks:
		if c.SocialLinks != nil {
			return c.SocialLinks
		}
	case SectionNavigation:
		if c.Navigation != nil {
			return c.Navigation
		}
	case SectionHero:
		if c.Hero != nil {
			return c.Hero
		}
	case SectionAbout:
		if c.About != nil {
			return c.About
		}
	case SectionSkills:
		if c.Skills != nil {
			return c.Skills
		}
	case SectionProjects:
		if c.Projects != nil {
			return c.Projects
		}
	case SectionExperience:
		if c.Experience != nil {
			return c.Experience
		}
	case SectionCertifications:
		if c.Certifications != nil {
			return c.Certifications
		}
	case SectionContact:
		if c.Contact != nil {
			return c.Contact
		}
	}
	return nil
}

// Set stores section under its own name.
func (c *SiteContent) Set(section Section) {
	switch s := section.(type) {
	case *PersonalInfo:
		c.PersonalInfo = s
	case *SocialLinks:
		c.SocialLinks = s
	case *Navigation:
		c.Navigation = s
	case *Hero:
		c.Hero = s
	case *About:
		c.About = s
	case *Skills:
		c.Skills = s
	case *Projects:
		c.Projects = s
	case *Experience:
		c.Experience = s
	case *Certifications:
		c.Certifications = s
	case *Contact:
		c.Contact = s
	}
}

// Clear removes the section stored under name.
func (c *SiteContent) Clear(name SectionName) {
	switch name {
	case SectionPersonalInfo:
		c.PersonalInfo = nil
	case SectionSocialLinks:
		c.SocialLinks = nil
	case SectionNavigation:
		c.Navigation = nil
	case SectionHero:
		c.Hero = nil
	case SectionAbout:
		c.About = nil
	case SectionSkills:
		c.Skills = nil
	case SectionProjects:
		c.Projects = nil
	case SectionExperience:
		c.Experience = nil
	case SectionCertifications:
		c.Certifications = nil
	case SectionContact:
		c.Contact = nil
	}
}

// Sections returns the populated sections in canonical order.
func (c *SiteContent) Sections() []Section {
	var out []Section
	for _, name := range sectionNames {
		if s := c.Get(name); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Names returns the names of the populated sections in canonical order.
func (c *SiteContent) Names() []SectionName {
	var out []SectionName
	for _, name := range sectionNames {
		if c.Get(name) != nil {
			out = append(out, name)
		}
	}
	return out
}

// Len returns the number of populated sections.
func (c *SiteContent) Len() int {
	return len(c.Names())
}

// Clone returns a deep copy.
func (c *SiteContent) Clone() *SiteContent {
	if c == nil {
		return nil
	}
	clone := &SiteContent{}
	for _, section := range c.Sections() {
		copied, err := Copy(section)
		if err != nil {
			// 所有分区都是纯数据结构，JSON 往返不会失败
			panic(fmt.Sprintf("content: copy %s: %v", section.SectionName(), err))
		}
		clone.Set(copied)
	}
	return clone
}

// MergeOver returns a copy of c where absent sections are taken from base.
func (c *SiteContent) MergeOver(base *SiteContent) *SiteContent {
	merged := base.Clone()
	if merged == nil {
		merged = &SiteContent{}
	}
	for _, section := range c.Clone().Sections() {
		merged.Set(section)
	}
	return merged
}

// DecodeSiteContent strictly decodes an aggregate keyed by section name.
// Unknown section names and payloads that fail validation are rejected.
func DecodeSiteContent(raw []byte) (*SiteContent, error) {
	var parts map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSection, err)
	}

	aggregate := &SiteContent{}
	for key, part := range parts {
		name, err := ParseSectionName(key)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(bytes.TrimSpace(part), []byte("null")) {
			continue
		}
		section, err := Decode(name, part)
		if err != nil {
			return nil, err
		}
		aggregate.Set(section)
	}
	return aggregate, nil
}
