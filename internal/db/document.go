package db

import "time"

// Document 保存文档库中的一条记录，以 (collection, doc_id) 唯一定位。
// Data 为整份 JSON 文档，写入时整体替换。
// Revision 每次写入或删除都会递增，删除只留下墓碑记录，版本号不会回退。
type Document struct {
	ID         uint   `gorm:"primarykey"`
	Collection string `gorm:"size:100;not null;uniqueIndex:idx_documents_ref"`
	DocID      string `gorm:"column:doc_id;size:200;not null;uniqueIndex:idx_documents_ref"`
	Data       string `gorm:"type:text;not null"`
	Revision   int64  `gorm:"not null;default:0"`
	Deleted    bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName 返回自定义表名
func (Document) TableName() string {
	return "documents"
}
