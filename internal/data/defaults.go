package data

import "dispatchdesk/internal/call"

// Defaults returns the built-in exemplars: four high, three medium and two
// low criticality calls.
func Defaults() []Exemplar {
	return []Exemplar{
		{
			PhoneNumber:   "+91 98765 43210",
			Transcription: "URGENT! My father is having severe chest pain and difficulty breathing! He is 65 years old, looks very pale and is sweating. We are at 123 MG Road, near the Metro station, Bangalore. He cannot breathe properly. Please send ambulance immediately! This is life-threatening!",
			Criticality:   call.CriticalityHigh,
		},
		{
			PhoneNumber:   "+91 98765 43211",
			Transcription: "EMERGENCY! Road accident on Outer Ring Road, near Marathahalli bridge. Multiple people injured, one person is unconscious and not responding. There is heavy bleeding. Please send ambulance quickly! This is critical!",
			Criticality:   call.CriticalityHigh,
		},
		{
			PhoneNumber:   "+91 98765 43214",
			Transcription: "HELP! My child is having a severe allergic reaction! She is 8 years old, having extreme trouble breathing, her face is swollen and she is turning blue. We are at 789 Koramangala, near Forum Mall, Bangalore. Please hurry! This is an emergency!",
			Criticality:   call.CriticalityHigh,
		},
		{
			PhoneNumber:   "+91 98765 43215",
			Transcription: "CRITICAL! My mother collapsed and is unconscious! She is not responding to anything. She is 70 years old. We are at 321 Whitefield Main Road, Bangalore. Please send help immediately! She has a history of heart problems!",
			Criticality:   call.CriticalityHigh,
		},
		{
			PhoneNumber:   "+91 98765 43212",
			Transcription: "I need medical help. My wife is having severe abdominal pain and vomiting. We live at 456 Indiranagar, 2nd main road, Bangalore. She is 35 years old. The pain started about an hour ago and is getting worse. She is conscious but in a lot of pain.",
			Criticality:   call.CriticalityMedium,
		},
		{
			PhoneNumber:   "+91 98765 43213",
			Transcription: "Ambulance needed! My neighbor fell down the stairs and cannot move his leg. He is 50 years old, male. We are at apartment complex Green Valley, Whitefield, Bangalore. He hit his head and there is some bleeding but he is conscious and talking.",
			Criticality:   call.CriticalityMedium,
		},
		{
			PhoneNumber:   "+91 98765 43216",
			Transcription: "Hello, I need an ambulance. My husband has severe back pain after lifting something heavy. He is 45 years old. We are at 567 HSR Layout, Bangalore. He is in pain but can still move. Please send help when possible.",
			Criticality:   call.CriticalityMedium,
		},
		{
			PhoneNumber:   "+91 98765 43217",
			Transcription: "Hi, I need medical assistance. My daughter has a high fever and headache. She is 12 years old. We are at 890 Jayanagar, Bangalore. She is alert and responsive but feeling unwell. Can you send an ambulance?",
			Criticality:   call.CriticalityLow,
		},
		{
			PhoneNumber:   "+91 98765 43218",
			Transcription: "Good morning, I need help transporting my elderly father to the hospital. He is 80 years old and has difficulty walking. We are at 234 Basavanagudi, Bangalore. He is stable but needs medical transport. This is not urgent.",
			Criticality:   call.CriticalityLow,
		},
	}
}
