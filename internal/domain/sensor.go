package domain

// TimelineChannel is the shared x-axis channel. Only accelerometer events
// advance it.
const TimelineChannel = "time"

// Sensor enumerates the sensor names the demultiplexer recognizes.
type Sensor uint8

const (
	SensorUnknown Sensor = iota
	SensorAccelerometer
	SensorGyroscope
	SensorGravity
	SensorOrientation
	SensorMagnetometer
	SensorCompass
	SensorMicrophone
	SensorWristMotion
	SensorAccelerometerUncalibrated
	SensorGyroscopeUncalibrated
	SensorMagnetometerUncalibrated

	sensorCount
)

var sensorNames = [sensorCount]string{
	SensorUnknown:                   "",
	SensorAccelerometer:             "accelerometer",
	SensorGyroscope:                 "gyroscope",
	SensorGravity:                   "gravity",
	SensorOrientation:               "orientation",
	SensorMagnetometer:              "magnetometer",
	SensorCompass:                   "compass",
	SensorMicrophone:                "microphone",
	SensorWristMotion:               "wrist motion",
	SensorAccelerometerUncalibrated: "accelerometeruncalibrated",
	SensorGyroscopeUncalibrated:     "gyroscopeuncalibrated",
	SensorMagnetometerUncalibrated:  "magnetometeruncalibrated",
}

var sensorsByName = func() map[string]Sensor {
	m := make(map[string]Sensor, sensorCount)
	for s := SensorAccelerometer; s < sensorCount; s++ {
		m[sensorNames[s]] = s
	}
	return m
}()

// ParseSensor matches name exactly (case-sensitive). Unrecognized names
// return SensorUnknown.
func ParseSensor(name string) Sensor {
	return sensorsByName[name]
}

// String returns the wire name of the sensor.
func (s Sensor) String() string {
	if s >= sensorCount {
		return ""
	}
	return sensorNames[s]
}

// Sensors lists every recognized sensor in declaration order.
func Sensors() []Sensor {
	out := make([]Sensor, 0, sensorCount-1)
	for s := SensorAccelerometer; s < sensorCount; s++ {
		out = append(out, s)
	}
	return out
}

// Binding copies one event field into one channel.
type Binding struct {
	Channel string
	Field   string
}

// Route is the channel group a sensor event fans out to.
type Route struct {
	Timeline bool
	Bindings []Binding
}

func xyz(prefix string) []Binding {
	return []Binding{
		{Channel: prefix + "_x", Field: "x"},
		{Channel: prefix + "_y", Field: "y"},
		{Channel: prefix + "_z", Field: "z"},
	}
}

// Route returns the channel group for s. ok is false for SensorUnknown.
func (s Sensor) Route() (r Route, ok bool) {
	switch s {
	case SensorAccelerometer:
		return Route{Timeline: true, Bindings: xyz("accel")}, true
	case SensorGyroscope:
		return Route{Bindings: xyz("gyro")}, true
	case SensorGravity:
		return Route{Bindings: xyz("gravity")}, true
	case SensorOrientation:
		return Route{Bindings: []Binding{
			{Channel: "orientation_yaw", Field: "yaw"},
			{Channel: "orientation_pitch", Field: "pitch"},
			{Channel: "orientation_roll", Field: "roll"},
			{Channel: "quat_x", Field: "qx"},
			{Channel: "quat_y", Field: "qy"},
			{Channel: "quat_z", Field: "qz"},
			{Channel: "quat_w", Field: "qw"},
		}}, true
	case SensorMagnetometer:
		return Route{Bindings: []Binding{{Channel: "magnetic_bearing", Field: "magneticBearing"}}}, true
	case SensorCompass:
		return Route{Bindings: []Binding{{Channel: "compass_bearing", Field: "magneticBearing"}}}, true
	case SensorMicrophone:
		return Route{Bindings: []Binding{{Channel: "microphone_dbfs", Field: "dBFS"}}}, true
	case SensorWristMotion:
		return Route{Bindings: []Binding{
			{Channel: "wrist_rotation_x", Field: "rotationRateX"},
			{Channel: "wrist_rotation_y", Field: "rotationRateY"},
			{Channel: "wrist_rotation_z", Field: "rotationRateZ"},
			{Channel: "wrist_gravity_x", Field: "gravityX"},
			{Channel: "wrist_gravity_y", Field: "gravityY"},
			{Channel: "wrist_gravity_z", Field: "gravityZ"},
			{Channel: "wrist_accel_x", Field: "accelerationX"},
			{Channel: "wrist_accel_y", Field: "accelerationY"},
			{Channel: "wrist_accel_z", Field: "accelerationZ"},
			{Channel: "wrist_quat_w", Field: "quaternionW"},
			{Channel: "wrist_quat_x", Field: "quaternionX"},
			{Channel: "wrist_quat_y", Field: "quaternionY"},
			{Channel: "wrist_quat_z", Field: "quaternionZ"},
		}}, true
	case SensorAccelerometerUncalibrated:
		return Route{Bindings: xyz("accel_uncal")}, true
	case SensorGyroscopeUncalibrated:
		return Route{Bindings: xyz("gyro_uncal")}, true
	case SensorMagnetometerUncalibrated:
		return Route{Bindings: xyz("magnetic_uncal")}, true
	default:
		return Route{}, false
	}
}

// ChannelNames lists the timeline followed by every routed channel, in
// sensor declaration order.
func ChannelNames() []string {
	names := []string{TimelineChannel}
	for _, s := range Sensors() {
		r, _ := s.Route()
		for _, b := range r.Bindings {
			names = append(names, b.Channel)
		}
	}
	return names
}
