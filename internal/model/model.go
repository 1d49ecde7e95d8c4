package model

import (
	"errors"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&LaunchSite{},
	&Run{},
	&RunSample{},
	&RunSeparation{},
}

// LaunchSite is where runs are flown from. Location is stored as EPSG:3857.
type LaunchSite struct {
	gorm.Model
	Name     string     `json:"name" gorm:"size:127;uniqueIndex"`
	Location geom.Point `json:"location"`
	Runs     []Run
}

func (*LaunchSite) TableName() string {
	return "launch_sites"
}

// GetOrInsert loads the site with the same name, inserting it when absent.
func (s *LaunchSite) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing LaunchSite
	err = db.Where("name = ?", s.Name).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err = db.Create(s).Error; err != nil {
				return false, err
			}
			return true, nil
		}
		return false, err
	}
	*s = existing
	return false, nil
}

// Run is one recorded simulation
type Run struct {
	ID           uint            `json:"id" gorm:"primarykey"`
	CreatedAt    time.Time       `json:"createdAt" gorm:"index:idx_run_created_at"`
	LaunchSiteID uint            `json:"launchSiteId" gorm:"index:idx_run_launch_site_id"`
	LaunchSite   LaunchSite      `gorm:"foreignkey:LaunchSiteID"`
	Input        datatypes.JSON  `json:"input" gorm:"type:jsonb"`   // core.LaunchInput
	Summary      datatypes.JSON  `json:"summary" gorm:"type:jsonb"` // core.Summary
	Success      bool            `json:"success" gorm:"index:idx_run_success"`
	SampleCount  int             `json:"sampleCount"`
	Profile      geom.LineString `json:"-"` // height over time, X = s, Y = m
	Samples      []RunSample     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Separations  []RunSeparation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
}

func (*Run) TableName() string {
	return "runs"
}

// RunSample is one trajectory sample. Step is the sample index, so Time = Step*dt.
type RunSample struct {
	RunID        uint    `json:"runId" gorm:"primaryKey;autoIncrement:false"`
	Step         uint    `json:"step" gorm:"primaryKey;autoIncrement:false"`
	Time         float64 `json:"time"`
	Height       float64 `json:"height"`
	Velocity     float64 `json:"velocity"`
	Acceleration float64 `json:"acceleration"`
	Stage        uint8   `json:"stage"`
	Thrust       float64 `json:"thrust"`
	WaterMass    float64 `json:"waterMass"`
}

func (*RunSample) TableName() string {
	return "run_samples"
}

// RunSeparation is a stage separation event of a run
type RunSeparation struct {
	ID        uint    `json:"id" gorm:"primarykey"`
	RunID     uint    `json:"runId" gorm:"index:idx_run_separation_run_id"`
	Time      float64 `json:"time"`
	FromStage uint8   `json:"stage"`
	Height    float64 `json:"height"`
	Velocity  float64 `json:"velocity"`
}

func (*RunSeparation) TableName() string {
	return "run_separations"
}
