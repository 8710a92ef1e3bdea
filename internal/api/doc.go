// Package api defines the JSON shapes exchanged with the production backend:
// project snapshots, scripts, story breakdowns, narration, elements, show
// settings, storyboard documents and progress events.
//
// Storyboard documents, scenes and prompts keep any members they do not model
// in an Extras map and write them back on marshal, so a load, edit and full
// replace cycle never strips data the backend added. Scenes remember whether
// they were numbered with scene_num or scene_number. Prompts normalize the
// legacy single-location fields into Locations.
package api
