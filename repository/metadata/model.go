package metadata

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
Model 与 gorm.Model 相同但不带 DeletedAt：所有删除都是硬删除，
否则 (project_id, name) 之类的唯一索引会被软删除的行占用。
*/
type Model struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

//////////////////////////////// 账号 ////////////////////////////////////

/*
Contributor 对应身份提供方中的一个账号，或者匿名访问者（以来源地址作为用户名）。

	Username 身份提供方的 uid、或来源地址；
	IsActive 为 false 时私有标注员的 token 不能再通过认证。

账号被删除时不级联删除 Annotator 与 ProjectEntry，以保留标注的来源。
*/
type Contributor struct {
	Model
	Username string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Email    string `gorm:"type:varchar(255)"`
	IsActive bool   `gorm:"not null"`
}

/*
Annotator 标识一条 ProjectEntry 的作者。

	AnnotatorType public 或 private；
	ContributorID 不建立外键，账号删除后记录仍然保留；
	ProjectID、InvitingContributorID、Token 只有私有标注员才有，Token 是私有标注员唯一的凭证。
*/
type Annotator struct {
	Model
	AnnotatorType string `gorm:"type:varchar(16);not null;index"`
	ContributorID uint   `gorm:"not null;index"`

	ProjectID             *uint   `gorm:"index"`
	InvitingContributorID *uint
	Token                 *string `gorm:"type:varchar(64);uniqueIndex"`
}

//////////////////////////////// 项目 ////////////////////////////////////

/*
Project 单表保存四种项目，ProjectType 是类型标记，创建后不再修改。

	URL 对外暴露的项目标识，创建时生成，唯一且不可修改；
	CharacterLevelSelection 机器翻译与命名实体识别项目必填，false 表示按词选择高亮；
	Administrators 多对多关系，项目管理员。
*/
type Project struct {
	Model
	Name                    string  `gorm:"type:varchar(255);not null"`
	Description             string  `gorm:"type:text"`
	URL                     string  `gorm:"type:varchar(36);not null;uniqueIndex"`
	ProjectType             string  `gorm:"type:varchar(64);not null;index"`
	TalkMarkdown            *string `gorm:"type:text"`
	CharacterLevelSelection *bool

	Administrators     []Contributor      `gorm:"many2many:project_administrators;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Categories         []Category         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UnannotatedEntries []UnannotatedEntry `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Entries            []ProjectEntry     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	PrivateAnnotators  []Annotator        `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if len(p.URL) == 0 {
		p.URL = uuid.NewString()
	}
	return nil
}

/*
Category 项目内的分类定义。

	(ProjectID, Name) 唯一；KeyBinding 非空时 (ProjectID, KeyBinding) 也唯一，由代码检查；
	命名实体识别项目的 KeyBinding 总是为空。
*/
type Category struct {
	Model
	ProjectID   uint    `gorm:"not null;uniqueIndex:idx_categories_project_name"`
	Name        string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_categories_project_name"`
	Description string  `gorm:"type:varchar(255)"`
	KeyBinding  *string `gorm:"type:varchar(255)"`
}

/*
UnannotatedEntry 导入的待标注文本，创建后只能删除。

	Text 文本分类与命名实体识别为原文；充分性项目为参考译文；流利度项目为机器译文；
	MTSystemTranslation 只有充分性项目使用；
	PreAnnotation* 预标注，按项目类型使用其中之一或不使用。
*/
type UnannotatedEntry struct {
	Model
	ProjectID           uint    `gorm:"not null;index"`
	Text                string  `gorm:"type:text;not null"`
	MTSystemTranslation *string `gorm:"column:mt_system_translation;type:text"`
	Context             *string `gorm:"type:text"`

	PreAnnotationCategoryID *uint
	PreAnnotationCategory   *Category `gorm:"foreignKey:PreAnnotationCategoryID"`
	PreAnnotationAdequacy   *float64
	PreAnnotationFluency    *float64
}

//////////////////////////////// 标注 ////////////////////////////////////

/*
ProjectEntry 一个标注员对一条待标注文本的判断。

	UnannotatedSource 必须属于同一个项目；
	ClassificationID 文本分类；
	Adequacy、Fluency 机器翻译；
	TextHighlights 机器翻译的高亮片段；NERTextHighlights 命名实体识别的片段。
*/
type ProjectEntry struct {
	Model
	ProjectID           uint              `gorm:"not null;index"`
	UnannotatedSourceID uint              `gorm:"not null;index"`
	UnannotatedSource   *UnannotatedEntry `gorm:"foreignKey:UnannotatedSourceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AnnotatorID         uint              `gorm:"not null;index"`
	Annotator           *Annotator        `gorm:"foreignKey:AnnotatorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	ClassificationID *uint
	Classification   *Category `gorm:"foreignKey:ClassificationID"`
	Adequacy         *float64
	Fluency          *float64

	TextHighlights    []TextHighlight    `gorm:"foreignKey:EntryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	NERTextHighlights []NERTextHighlight `gorm:"foreignKey:EntryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

/*
TextHighlight 机器翻译标注中的高亮片段，偏移量以字符计。

	MistranslationSourceID 只在 Category 为 Mistranslation 时可能非空，
	指向同一条标注中另一条 Side=source 的片段，只保存 ID 不建立外键。
*/
type TextHighlight struct {
	Model
	EntryID                uint   `gorm:"not null;index"`
	Side                   string `gorm:"type:varchar(8);not null"`
	SpanStart              int    `gorm:"not null"`
	SpanEnd                int    `gorm:"not null"`
	Category               string `gorm:"type:varchar(255);not null"`
	MistranslationSourceID *uint  `gorm:"index"`
}

type NERTextHighlight struct {
	Model
	EntryID    uint      `gorm:"not null;index"`
	SpanStart  int       `gorm:"not null"`
	SpanEnd    int       `gorm:"not null"`
	CategoryID uint      `gorm:"not null;index"`
	Category   *Category `gorm:"foreignKey:CategoryID"`
}

/*
ProjectEntryHistory 标注的变更历史，只追加、不修改。

	HistoryType + 创建，~ 修改，- 删除；
	Snapshot 变更后的取值，schema 见 EntrySnapshot；
	不与 ProjectEntry 建立外键，标注删除后历史仍然保留。
*/
type ProjectEntryHistory struct {
	ID          uint   `gorm:"primaryKey"`
	EntryID     uint   `gorm:"not null;index"`
	ProjectID   uint   `gorm:"not null;index"`
	HistoryType string `gorm:"type:varchar(1);not null"`
	ChangedByID *uint
	Snapshot    datatypes.JSON
	CreatedAt   time.Time
}
