package bluebolt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

const (
	USER_AGENT = "bluebolt (https://github.com/andig/bluebolt)"

	ENDPOINT = "https://www.mybluebolt.com"

	AUTH_URL             = "/data-svc/login_check_svc.php?svc=authenticateUser&data[username]=%s&data[password]=%s"
	LOCATION_LIST_URL    = "/middleware/locations/dataSvc.php?svc=getSitesData&pageNo=1&recordsPerPage=18"
	LOCATION_DETAILS_URL = "/data-svc/siteManagement/data-svc.php?siteId=%s&svc=settings"
	DEVICE_LIST_URL      = "/data-svc/siteManagement/data-svc.php?siteId=%s&svc=devList&detailed=true&isCached=false"
	DEVICE_STATUS_URL    = "/data-svc/cv1.deviceControls/data-svc.php?siteId=%s&devClass=%s&devId=%s&svc=status"
	OUTLETS_URL          = "/data-svc/cv1.deviceControls/data-svc.php?siteId=%s&devClass=%s&devId=%s&svc=labels"
	DEVICE_URL           = API_V2_PREFIX + "/devices/%s"

	// API_V2_PREFIX is the path of the v2 REST api
	API_V2_PREFIX = "/api/v2"

	// LOGIN_COOKIE carries the session
	LOGIN_COOKIE = "login"
)

const (
	RETRY_LIMIT     = 3
	SESSION_TIMEOUT = 24 * time.Hour
)

const (
	VALVE_OPEN   = "open"
	VALVE_CLOSED = "closed"
)

// ID is a BlueBOLT identifier. The service sends some ids as numbers and others as strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	if v == nil {
		*id = ""
		return nil
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}

	*id = ID(s)
	return nil
}

func (id ID) String() string {
	return string(id)
}

// AuthResponse flags may be sent as booleans, numbers or strings
type AuthResponse struct {
	Data *struct {
		Auth      any `json:"auth"`
		Activated any `json:"activated"`
	} `json:"data"`
}

type Locations struct {
	Records []Location `json:"records" validate:"dive"`
}

type Location struct {
	SiteID   ID     `json:"siteId" validate:"required"`
	SiteName string `json:"siteName"`
}

type DeviceList struct {
	DevList []DeviceInfo `json:"devList" validate:"dive"`
}

type DeviceInfo struct {
	DevClass string `json:"devClass" validate:"required"`
	DevID    ID     `json:"devId" validate:"required"`
	Name     string `json:"name"`
}

// LocationDetails, DeviceStatus and OutletLabels have no fixed shape and are passed through
type (
	LocationDetails map[string]any
	DeviceStatus    map[string]any
	OutletLabels    map[string]any
)

type ValveTarget struct {
	Target string `json:"target"`
}
