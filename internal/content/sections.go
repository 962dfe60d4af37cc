// Package content defines the portfolio sections and the SiteContent aggregate.
package content

import (
	"errors"
	"fmt"
)

// SectionName identifies one section document.
type SectionName string

// 分区名称与文档 ID 一一对应
const (
	SectionPersonalInfo   SectionName = "personalInfo"
	SectionSocialLinks    SectionName = "socialLinks"
	SectionNavigation     SectionName = "navigation"
	SectionHero           SectionName = "hero"
	SectionAbout          SectionName = "about"
	SectionSkills         SectionName = "skills"
	SectionProjects       SectionName = "projects"
	SectionExperience     SectionName = "experience"
	SectionCertifications SectionName = "certifications"
	SectionContact        SectionName = "contact"
)

var sectionNames = []SectionName{
	SectionPersonalInfo,
	SectionSocialLinks,
	SectionNavigation,
	SectionHero,
	SectionAbout,
	SectionSkills,
	SectionProjects,
	SectionExperience,
	SectionCertifications,
	SectionContact,
}

// ErrUnknownSection is returned for a name outside the fixed section list.
var ErrUnknownSection = errors.New("unknown section")

// AllSections returns the section names in canonical order.
func AllSections() []SectionName {
	names := make([]SectionName, len(sectionNames))
	copy(names, sectionNames)
	return names
}

// ParseSectionName validates raw against the section list.
func ParseSectionName(raw string) (SectionName, error) {
	for _, name := range sectionNames {
		if string(name) == raw {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, raw)
}

// Valid reports whether n is one of the known sections.
func (n SectionName) Valid() bool {
	_, err := ParseSectionName(string(n))
	return err == nil
}

func (n SectionName) String() string {
	return string(n)
}

// Section is implemented by every section record.
type Section interface {
	SectionName() SectionName
}

// New returns an empty record for name.
func New(name SectionName) (Section, error) {
	switch name {
	case SectionPersonalInfo:
		return &PersonalInfo{}, nil
	case SectionSocialLinks:
		return &SocialLinks{}, nil
	case SectionNavigation:
		return &Navigation{}, nil
	case SectionHero:
		return &Hero{}, nil
	case SectionAbout:
		return &About{}, nil
	case SectionSkills:
		return &Skills{}, nil
	case SectionProjects:
		return &Projects{}, nil
	case SectionExperience:
		return &Experience{}, nil
	case SectionCertifications:
		return &Certifications{}, nil
	case SectionContact:
		return &Contact{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, string(name))
	}
}

// PersonalInfo 站点主人的基本信息
type PersonalInfo struct {
	Name      string `json:"name" yaml:"name" validate:"required,max=120"`
	Title     string `json:"title" yaml:"title" validate:"max=160"`
	Email     string `json:"email" yaml:"email" validate:"omitempty,email"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty" validate:"max=160"`
	Phone     string `json:"phone,omitempty" yaml:"phone,omitempty" validate:"max=40"`
	AvatarURL string `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty" validate:"omitempty,link"`
	ResumeURL string `json:"resumeUrl,omitempty" yaml:"resumeUrl,omitempty" validate:"omitempty,link"`
}

// SocialLink 浮动社交图标中的一项
type SocialLink struct {
	Label    string `json:"label" yaml:"label" validate:"required,max=60"`
	URL      string `json:"url" yaml:"url" validate:"required,link"`
	IconName string `json:"iconName,omitempty" yaml:"iconName,omitempty" validate:"max=40"`
}

// SocialLinks 社交链接列表
type SocialLinks struct {
	Links []SocialLink `json:"links" yaml:"links" validate:"dive"`
}

// NavItem 导航项，Shortcut 为键盘快捷键
type NavItem struct {
	ID       string `json:"id" yaml:"id" validate:"required,max=60"`
	Label    string `json:"label" yaml:"label" validate:"required,max=60"`
	Shortcut string `json:"shortcut,omitempty" yaml:"shortcut,omitempty" validate:"max=10"`
}

// Navigation 顶部导航
type Navigation struct {
	Items []NavItem `json:"items" yaml:"items" validate:"dive"`
}

// CallToAction 按钮文案与跳转地址
type CallToAction struct {
	Text string `json:"text" yaml:"text" validate:"max=60"`
	Href string `json:"href" yaml:"href" validate:"max=255"`
}

// Hero 首屏
type Hero struct {
	Greeting     string        `json:"greeting,omitempty" yaml:"greeting,omitempty" validate:"max=120"`
	Title        string        `json:"title" yaml:"title" validate:"required,max=160"`
	Subtitle     string        `json:"subtitle,omitempty" yaml:"subtitle,omitempty" validate:"max=255"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty" validate:"max=2000"`
	PrimaryCTA   *CallToAction `json:"primaryCta,omitempty" yaml:"primaryCta,omitempty"`
	SecondaryCTA *CallToAction `json:"secondaryCta,omitempty" yaml:"secondaryCta,omitempty"`
}

// About 关于我，Content 为 Markdown
type About struct {
	Title      string   `json:"title" yaml:"title" validate:"required,max=160"`
	Subtitle   string   `json:"subtitle,omitempty" yaml:"subtitle,omitempty" validate:"max=255"`
	Content    string   `json:"content" yaml:"content" content:"markdown" validate:"max=20000"`
	Highlights []string `json:"highlights,omitempty" yaml:"highlights,omitempty" validate:"dive,max=160"`
	ImageURL   string   `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty" validate:"omitempty,link"`
}

// Skill 单项技能，Level 取值 0-100
type Skill struct {
	Name  string `json:"name" yaml:"name" validate:"required,max=60"`
	Level int    `json:"level" yaml:"level" validate:"min=0,max=100"`
}

// SkillCategory 技能分组
type SkillCategory struct {
	Name   string  `json:"name" yaml:"name" validate:"required,max=60"`
	Skills []Skill `json:"skills" yaml:"skills" validate:"dive"`
}

// Skills 技能栈
type Skills struct {
	Title      string          `json:"title" yaml:"title" validate:"required,max=160"`
	Subtitle   string          `json:"subtitle,omitempty" yaml:"subtitle,omitempty" validate:"max=255"`
	Categories []SkillCategory `json:"categories" yaml:"categories" validate:"dive"`
}

// Project 作品
type Project struct {
	ID           string   `json:"id" yaml:"id" validate:"max=64"`
	Title        string   `json:"title" yaml:"title" validate:"required,max=160"`
	Description  string   `json:"description" yaml:"description" validate:"max=4000"`
	Technologies []string `json:"technologies,omitempty" yaml:"technologies,omitempty" validate:"dive,max=60"`
	ImageURL     string   `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty" validate:"omitempty,link"`
	LiveURL      string   `json:"liveUrl,omitempty" yaml:"liveUrl,omitempty" validate:"omitempty,link"`
	GitHubURL    string   `json:"githubUrl,omitempty" yaml:"githubUrl,omitempty" validate:"omitempty,link"`
	Featured     bool     `json:"featured,omitempty" yaml:"featured,omitempty"`
}

// Projects 作品集
type Projects struct {
	Title    string    `json:"title" yaml:"title" validate:"required,max=160"`
	Subtitle string    `json:"subtitle,omitempty" yaml:"subtitle,omitempty" validate:"max=255"`
	Items    []Project `json:"items" yaml:"items" validate:"dive"`
}

// Job 一段工作经历，日期使用 YYYY-MM 或 YYYY-MM-DD
type Job struct {
	ID           string   `json:"id" yaml:"id" validate:"max=64"`
	Company      string   `json:"company" yaml:"company" validate:"required,max=160"`
	Role         string   `json:"role" yaml:"role" validate:"required,max=160"`
	Location     string   `json:"location,omitempty" yaml:"location,omitempty" validate:"max=160"`
	StartDate    string   `json:"startDate" yaml:"startDate" validate:"required,partialdate"`
	EndDate      string   `json:"endDate,omitempty" yaml:"endDate,omitempty" validate:"omitempty,partialdate"`
	Current      bool     `json:"current,omitempty" yaml:"current,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty" validate:"max=4000"`
	Achievements []string `json:"achievements,omitempty" yaml:"achievements,omitempty" validate:"dive,max=500"`
}

// Experience 工作经历
type Experience struct {
	Title    string `json:"title" yaml:"title" validate:"required,max=160"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty" validate:"max=255"`
	Items    []Job  `json:"items" yaml:"items" validate:"dive"`
}

// Certification 证书
type Certification struct {
	ID            string `json:"id" yaml:"id" validate:"max=64"`
	Name          string `json:"name" yaml:"name" validate:"required,max=160"`
	Issuer        string `json:"issuer" yaml:"issuer" validate:"required,max=160"`
	IssueDate     string `json:"issueDate,omitempty" yaml:"issueDate,omitempty" validate:"omitempty,partialdate"`
	CredentialURL string `json:"credentialUrl,omitempty" yaml:"credentialUrl,omitempty" validate:"omitempty,link"`
}

// Certifications 证书列表
type Certifications struct {
	Title    string          `json:"title" yaml:"title" validate:"required,max=160"`
	Subtitle string          `json:"subtitle,omitempty" yaml:"subtitle,omitempty" validate:"max=255"`
	Items    []Certification `json:"items" yaml:"items" validate:"dive"`
}

// BulletPoint 联系区块的要点
type BulletPoint struct {
	Text string `json:"text" yaml:"text" validate:"required,max=255"`
}

// FieldCopy 表单字段的标签与占位符
type FieldCopy struct {
	Label       string `json:"label" yaml:"label" validate:"max=60"`
	Placeholder string `json:"placeholder" yaml:"placeholder" validate:"max=120"`
}

// ContactFormFields 表单中可配置文案的字段
type ContactFormFields struct {
	FirstName FieldCopy `json:"firstName" yaml:"firstName"`
	LastName  FieldCopy `json:"lastName" yaml:"lastName"`
}

// ButtonCopy 按钮文案
type ButtonCopy struct {
	Text string `json:"text" yaml:"text" validate:"max=60"`
}

// ContactForm 联系表单文案
type ContactForm struct {
	Title        string            `json:"title" yaml:"title" validate:"max=160"`
	Fields       ContactFormFields `json:"fields" yaml:"fields"`
	SubmitButton ButtonCopy        `json:"submitButton" yaml:"submitButton"`
}

// EmailCard 邮件卡片标题
type EmailCard struct {
	Title string `json:"title" yaml:"title" validate:"max=160"`
}

// Contact 联系我
type Contact struct {
	Title        string        `json:"title" yaml:"title" validate:"required,max=160"`
	Subtitle     string        `json:"subtitle,omitempty" yaml:"subtitle,omitempty" validate:"max=255"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty" validate:"max=2000"`
	BulletPoints []BulletPoint `json:"bulletPoints,omitempty" yaml:"bulletPoints,omitempty" validate:"dive"`
	EmailCard    EmailCard     `json:"emailCard" yaml:"emailCard"`
	Form         ContactForm   `json:"form" yaml:"form"`
}

func (*PersonalInfo) SectionName() SectionName   { return SectionPersonalInfo }
func (*SocialLinks) SectionName() SectionName    { return SectionSocialLinks }
func (*Navigation) SectionName() SectionName     { return SectionNavigation }
func (*Hero) SectionName() SectionName           { return SectionHero }
func (*About) SectionName() SectionName          { return SectionAbout }
func (*Skills) SectionName() SectionName         { return SectionSkills }
func (*Projects) SectionName() SectionName       { return SectionProjects }
func (*Experience) SectionName() SectionName     { return SectionExperience }
func (*Certifications) SectionName() SectionName { return SectionCertifications }
func (*Contact) SectionName() SectionName        { return SectionContact }
