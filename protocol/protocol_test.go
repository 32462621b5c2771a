package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testXML = `<?xml version="1.0" encoding="UTF-8"?>
<protocol name="test">
  <copyright>Public domain.</copyright>
  <interface name="wl_thing" version="3">
    <description summary="a thing">A thing that exists.</description>
    <request name="destroy" type="destructor"/>
    <request name="poke" since="2">
      <arg name="id" type="new_id" interface="wl_callback"/>
      <arg name="target" type="object" allow-null="true"/>
    </request>
    <event name="poked">
      <arg name="count" type="uint"/>
    </event>
    <enum name="mode" bitfield="true">
      <entry name="none" value="0"/>
      <entry name="fast" value="0x4"/>
    </enum>
  </interface>
</protocol>`

func TestParse(t *testing.T) {
	proto, err := Parse(strings.NewReader(testXML))
	require.NoError(t, err)
	assert.Equal(t, "test", proto.Name)
	assert.Equal(t, "Public domain.", proto.Copyright)

	i, ok := proto.Interface("wl_thing")
	require.True(t, ok)
	assert.Equal(t, 3, i.Version)
	assert.Equal(t, "a thing", i.Description.Summary)
	assert.Equal(t, []string{"destroy", "poke"}, i.RequestNames())
	assert.Equal(t, []string{"poked"}, i.EventNames())

	assert.True(t, i.Requests[0].IsDestructor())
	assert.False(t, i.Requests[1].IsDestructor())
	assert.Equal(t, 2, i.Requests[1].Since)

	args := i.Requests[1].Args
	require.Len(t, args, 2)
	assert.Equal(t, Arg{Name: "id", Type: "new_id", Interface: "wl_callback"}, args[0])
	assert.True(t, args[1].AllowNull)

	require.Len(t, i.Enums, 1)
	assert.True(t, i.Enums[0].Bitfield)
	v, err := i.Enums[0].Entries[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	_, ok = proto.Interface("wl_missing")
	assert.False(t, ok)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader("<protocol"))
	assert.Error(t, err)
}

func TestCore(t *testing.T) {
	core := Core()
	assert.Equal(t, "wayland", core.Name)

	want := map[string]int{
		"wl_display":       1,
		"wl_registry":      1,
		"wl_callback":      1,
		"wl_compositor":    4,
		"wl_surface":       4,
		"wl_shm":           1,
		"wl_shm_pool":      1,
		"wl_buffer":        1,
		"wl_shell":         1,
		"wl_shell_surface": 1,
	}
	for name, version := range want {
		i, ok := core.Interface(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, version, i.Version, name)
		}
	}

	surface, _ := core.Interface("wl_surface")
	assert.Equal(t, "commit", surface.RequestNames()[6])
	assert.Equal(t, "damage_buffer", surface.RequestNames()[9])

	ss, _ := core.Interface("wl_shell_surface")
	assert.Equal(t, "set_class", ss.RequestNames()[9])
	assert.Equal(t, []string{"ping", "configure", "popup_done"}, ss.EventNames())
}
