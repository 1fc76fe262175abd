package bus

import (
	"fmt"
)

// Fixed configuration topics shared by every module.
const (
	TopicDeviceConfig = "config/mcp3208/"
	TopicSensorConfig = "sensor_config/"
)

// ChannelConfigTopic matches the channel assignments of module.
func ChannelConfigTopic(module int) string {
	return fmt.Sprintf("channel_config/%d/+/", module)
}

// CommandTopic is the command topic of module.
func CommandTopic(module int) string {
	return fmt.Sprintf("command/%d/", module)
}

// ResultTopic is where results of one channel are published.
func ResultTopic(module, channel int) string {
	return fmt.Sprintf("set/channel/%d/%d/", module, channel)
}
