package db

import "gorm.io/gorm"

// 联系表单投递状态
const (
	ContactStatusSent   = "sent"
	ContactStatusFailed = "failed"
)

// ContactMessage 记录访客通过联系表单提交的留言
// Status 标记转发到邮件中继的结果
// Error 在转发失败时保存原因，便于后台排查

type ContactMessage struct {
	gorm.Model
	PublicID string `gorm:"size:36;uniqueIndex;not null"`
	Name     string `gorm:"size:160;not null"`
	Email    string `gorm:"size:255;not null"`
	Subject  string `gorm:"size:255"`
	Message  string `gorm:"type:text;not null"`
	Status   string `gorm:"size:20;not null"`
	Error    string `gorm:"size:500"`
}

// TableName 返回自定义表名，避免冲突
func (ContactMessage) TableName() string {
	return "contact_messages"
}
