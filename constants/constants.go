package constants

// File is the name of one of the GTFS tables written by the scraper.
type File string

const (
	AgencyFile File = "agency.txt"
	StopsFile  File = "stops.txt"
	RoutesFile File = "routes.txt"
)

// Files lists the tables in the order they are written by the all command.
var Files = []File{AgencyFile, StopsFile, RoutesFile}

type Entity string

const (
	Agency Entity = "agency"
	Route  Entity = "route"
	Stop   Entity = "stop"
)
